package rimage

import (
	"image"
	"image/draw"
)

// SameImgSize compares two images to see if they're the same size.
func SameImgSize(g1, g2 image.Image) bool {
	return g1.Bounds().Max.X == g2.Bounds().Max.X && g1.Bounds().Max.Y == g2.Bounds().Max.Y
}

// MakeGray converts an Image to an image.Gray.
func MakeGray(pic *Image) *image.Gray {
	result := image.NewGray(pic.Bounds())
	draw.Draw(result, result.Bounds(), pic, pic.Bounds().Min, draw.Src)
	return result
}

// ConvertGrayToColor expands a grayscale image into a color Image where every
// channel carries the gray sample.
func ConvertGrayToColor(g *image.Gray) *Image {
	b := g.Bounds()
	out := NewImage(b.Dx(), b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := g.GrayAt(x, y).Y
			out.SetXY(x-b.Min.X, y-b.Min.Y, NewColor(v, v, v))
		}
	}
	return out
}

// CloneGray returns a deep copy of a grayscale image.
func CloneGray(g *image.Gray) *image.Gray {
	out := image.NewGray(g.Bounds())
	copy(out.Pix, g.Pix)
	return out
}
