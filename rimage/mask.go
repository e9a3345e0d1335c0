package rimage

import "image"

// Mask is a per-pixel boolean validity buffer, row major.
type Mask struct {
	width  int
	height int

	data []bool
}

// NewMask returns an all-invalid mask of the given dimensions.
func NewMask(width, height int) *Mask {
	return &Mask{width: width, height: height, data: make([]bool, width*height)}
}

// NewFilledMask returns an all-valid mask of the given dimensions.
func NewFilledMask(width, height int) *Mask {
	m := NewMask(width, height)
	for i := range m.data {
		m.data[i] = true
	}
	return m
}

// HasData returns whether the mask has been allocated.
func (m *Mask) HasData() bool {
	return m.width > 0 && m.data != nil
}

// Width returns the horizontal width of the mask.
func (m *Mask) Width() int {
	return m.width
}

// Height returns the vertical height of the mask.
func (m *Mask) Height() int {
	return m.height
}

// Bounds returns the rectangle of the mask.
func (m *Mask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.width, m.height)
}

// Get returns validity at (x,y).
func (m *Mask) Get(x, y int) bool {
	return m.data[(y*m.width)+x]
}

// Set sets validity at (x,y).
func (m *Mask) Set(x, y int, valid bool) {
	m.data[(y*m.width)+x] = valid
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	out := NewMask(m.width, m.height)
	copy(out.data, m.data)
	return out
}
