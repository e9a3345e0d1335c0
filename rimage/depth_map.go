package rimage

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"image"
	"io"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// DepthMap holds a metric depth sample per pixel, row major.
type DepthMap struct {
	width  int
	height int

	data []float32
}

// NewEmptyDepthMap returns an unset depth map of the given dimensions.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{width: width, height: height, data: make([]float32, width*height)}
}

func (dm *DepthMap) kxy(x, y int) int {
	return (y * dm.width) + x
}

// HasData returns whether the depth map has been allocated.
func (dm *DepthMap) HasData() bool {
	return dm.width > 0 && dm.data != nil
}

// Width returns the horizontal width of the depth map.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the vertical height of the depth map.
func (dm *DepthMap) Height() int {
	return dm.height
}

// Bounds returns the rectangle of the depth map.
func (dm *DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.width, dm.height)
}

// In returns whether the point is within bounds.
func (dm *DepthMap) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < dm.width && y < dm.height
}

// Get returns the depth at a given image.Point.
func (dm *DepthMap) Get(p image.Point) float32 {
	return dm.data[dm.kxy(p.X, p.Y)]
}

// GetDepth returns the depth at (x,y).
func (dm *DepthMap) GetDepth(x, y int) float32 {
	return dm.data[dm.kxy(x, y)]
}

// Set sets the depth at (x,y).
func (dm *DepthMap) Set(x, y int, val float32) {
	dm.data[dm.kxy(x, y)] = val
}

// Clone returns a deep copy.
func (dm *DepthMap) Clone() *DepthMap {
	out := NewEmptyDepthMap(dm.width, dm.height)
	copy(out.data, dm.data)
	return out
}

// MinMax returns the smallest and largest depth values present.
func (dm *DepthMap) MinMax() (float32, float32) {
	min := float32(math.MaxFloat32)
	max := float32(-math.MaxFloat32)
	for _, z := range dm.data {
		if z < min {
			min = z
		}
		if z > max {
			max = z
		}
	}
	return min, max
}

// ToGray16Picture converts the depth map to a grayscale picture scaled
// between the observed min and max, for human inspection.
func (dm *DepthMap) ToGray16Picture() *image.Gray16 {
	img := image.NewGray16(dm.Bounds())
	min, max := dm.MinMax()
	span := max - min
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			var v uint16
			if span > 0 {
				v = uint16(float32(math.MaxUint16) * ((dm.GetDepth(x, y) - min) / span))
			}
			i := img.PixOffset(x, y)
			binary.BigEndian.PutUint16(img.Pix[i:], v)
		}
	}
	return img
}

func _readNext(r io.Reader) (int64, error) {
	data := make([]byte, 8)
	x, err := io.ReadFull(r, data)
	if x == 8 {
		return int64(binary.LittleEndian.Uint64(data)), nil
	}
	return 0, errors.Wrapf(err, "got %d bytes", x)
}

// ReadDepthMap returns a depth map from the given reader: two int64
// little-endian dimensions followed by width*height float32 samples.
func ReadDepthMap(r io.Reader) (*DepthMap, error) {
	width, err := _readNext(r)
	if err != nil {
		return nil, err
	}
	height, err := _readNext(r)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("bad dimensions %dx%d", width, height)
	}

	dm := NewEmptyDepthMap(int(width), int(height))
	raw := make([]byte, 4*len(dm.data))
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errors.Wrap(err, "cannot read depth data")
	}
	for i := range dm.data {
		dm.data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return dm, nil
}

// WriteTo writes the depth map in the binary format ReadDepthMap expects.
func (dm *DepthMap) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, 8)
	var n int64

	binary.LittleEndian.PutUint64(buf, uint64(dm.width))
	x, err := w.Write(buf)
	n += int64(x)
	if err != nil {
		return n, err
	}
	binary.LittleEndian.PutUint64(buf, uint64(dm.height))
	x, err = w.Write(buf)
	n += int64(x)
	if err != nil {
		return n, err
	}

	for _, z := range dm.data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(z))
		x, err = w.Write(buf[:4])
		n += int64(x)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// WriteToFile writes the depth map to the given file, gzipped if the path
// ends in ".gz".
func (dm *DepthMap) WriteToFile(fn string) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	var out io.Writer = f
	var gout *gzip.Writer
	if strings.HasSuffix(fn, ".gz") {
		gout = gzip.NewWriter(f)
		out = gout
	}
	bout := bufio.NewWriter(out)

	if _, err = dm.WriteTo(bout); err != nil {
		return err
	}
	if err = bout.Flush(); err != nil {
		return err
	}
	if gout != nil {
		return gout.Close()
	}
	return nil
}

// ParseDepthMap reads a depth map from the given file, gunzipping if the path
// ends in ".gz".
func ParseDepthMap(fn string) (dm *DepthMap, err error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	var in io.Reader = f
	if strings.HasSuffix(fn, ".gz") {
		gin, gerr := gzip.NewReader(f)
		if gerr != nil {
			return nil, gerr
		}
		defer func() {
			err = multierr.Combine(err, gin.Close())
		}()
		in = gin
	}
	return ReadDepthMap(bufio.NewReader(in))
}
