package rimage

import (
	"fmt"
	"image/color"
)

// Color is an 8-bit RGB sample.
type Color struct {
	R, G, B uint8
}

// NewColor returns a color from R,G,B.
func NewColor(r, g, b uint8) Color {
	return Color{r, g, b}
}

// NewColorFromColor takes in a go Color and converts it.
func NewColorFromColor(c color.Color) Color {
	switch cc := c.(type) {
	case Color:
		return cc
	case color.Gray:
		return Color{cc.Y, cc.Y, cc.Y}
	case color.NRGBA:
		return Color{cc.R, cc.G, cc.B}
	}
	r, g, b, _ := c.RGBA()
	return Color{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}
}

func (c Color) String() string {
	return c.Hex()
}

// Hex returns the color as a hex string.
func (c Color) Hex() string {
	return fmt.Sprintf("#%.2x%.2x%.2x", c.R, c.G, c.B)
}

// RGB255 returns the R,G,B components.
func (c Color) RGB255() (uint8, uint8, uint8) {
	return c.R, c.G, c.B
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R)
	r |= r << 8
	g = uint32(c.G)
	g |= g << 8
	b = uint32(c.B)
	b |= b << 8
	a = 0xffff
	return
}

// TheColorModel is the model used by Color.
type TheColorModel struct{}

// Convert converts any color to our color model.
func (cm *TheColorModel) Convert(c color.Color) color.Color {
	return NewColorFromColor(c)
}
