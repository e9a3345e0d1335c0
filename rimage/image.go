// Package rimage defines fundamental image types: a color image, a metric
// depth map, and a validity mask, all sharing a flat row-major layout.
package rimage

import (
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Image is a color image with a flat row-major buffer.
type Image struct {
	data          []Color
	width, height int
}

// NewImage returns a blank image of the given dimensions.
func NewImage(width, height int) *Image {
	return &Image{data: make([]Color, width*height), width: width, height: height}
}

// NewImageFromStdImage converts an image.Image.
func NewImageFromStdImage(img image.Image) *Image {
	b := img.Bounds()
	out := NewImage(b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.SetXY(x-b.Min.X, y-b.Min.Y, NewColorFromColor(img.At(x, y)))
		}
	}
	return out
}

func (i *Image) kxy(x, y int) int {
	return (y * i.width) + x
}

// In returns whether the point is within the image bounds.
func (i *Image) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < i.width && y < i.height
}

// Width returns the horizontal width of the image.
func (i *Image) Width() int {
	return i.width
}

// Height returns the vertical height of the image.
func (i *Image) Height() int {
	return i.height
}

// Bounds returns the rectangle of the image.
func (i *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, i.width, i.height)
}

// ColorModel implements image.Image.
func (i *Image) ColorModel() color.Model {
	return &TheColorModel{}
}

// At implements image.Image.
func (i *Image) At(x, y int) color.Color {
	return i.data[i.kxy(x, y)]
}

// GetXY returns the color at (x,y).
func (i *Image) GetXY(x, y int) Color {
	return i.data[i.kxy(x, y)]
}

// SetXY sets the color at (x,y).
func (i *Image) SetXY(x, y int, c Color) {
	i.data[i.kxy(x, y)] = c
}

// Clone returns a deep copy.
func (i *Image) Clone() *Image {
	out := NewImage(i.width, i.height)
	copy(out.data, i.data)
	return out
}

// WriteTo writes the image as PNG to the given path.
func (i *Image) WriteTo(fn string) error {
	return WriteImageToFile(fn, i)
}

// WriteImageToFile writes an image as PNG to the given path.
func WriteImageToFile(path string, img image.Image) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot create file %q", path)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return png.Encode(f, img)
}
