// Package render paints the demo's pixel content into a raw ARGB8888
// buffer. ARGB8888 is stored little endian, so each pixel is written
// as b, g, r, a in memory order.
package render

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Style selects a gradient painter.
type Style int

const (
	// StyleCorner is the classic demo gradient: red, green and blue
	// ramps anchored in three corners, built from integer ramps over
	// the pixel coordinates.
	StyleCorner Style = iota
	// StyleHSV sweeps the hue across the width and fades the value
	// toward the bottom.
	StyleHSV
)

// ParseStyle maps a config value to a Style.
func ParseStyle(s string) (Style, error) {
	switch s {
	case "", "corner":
		return StyleCorner, nil
	case "hsv":
		return StyleHSV, nil
	default:
		return 0, fmt.Errorf("unknown gradient style %q (want corner or hsv)", s)
	}
}

func (s Style) String() string {
	switch s {
	case StyleCorner:
		return "corner"
	case StyleHSV:
		return "hsv"
	default:
		return fmt.Sprintf("Style(%d)", int(s))
	}
}

// Paint fills pix, a width x height ARGB8888 buffer with the given
// stride in bytes, using the selected style. The buffer is painted
// exactly once for the life of the window.
func Paint(style Style, pix []byte, width, height, stride int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	if stride < width*4 {
		return fmt.Errorf("stride %d too small for width %d", stride, width)
	}
	if need := stride * height; len(pix) < need {
		return fmt.Errorf("buffer holds %d bytes, need %d", len(pix), need)
	}
	switch style {
	case StyleCorner:
		corner(pix, width, height, stride)
	case StyleHSV:
		hsv(pix, width, height, stride)
	default:
		return fmt.Errorf("unknown style %d", int(style))
	}
	return nil
}

func corner(pix []byte, width, height, stride int) {
	w, h := uint32(width), uint32(height)
	for y := uint32(0); y < h; y++ {
		row := pix[int(y)*stride:]
		for x := uint32(0); x < w; x++ {
			r := min32((w-x)*0xFF/w, (h-y)*0xFF/h)
			g := min32(x*0xFF/w, (h-y)*0xFF/h)
			b := min32((w-x)*0xFF/w, y*0xFF/h)
			i := x * 4
			row[i+0] = byte(b)
			row[i+1] = byte(g)
			row[i+2] = byte(r)
			row[i+3] = 0xFF
		}
	}
}

func hsv(pix []byte, width, height, stride int) {
	rows := float64(height - 1)
	if rows == 0 {
		rows = 1
	}
	for y := 0; y < height; y++ {
		row := pix[y*stride:]
		// Full value at the top fading to a dim band at the bottom
		// keeps every hue visible.
		v := 1.0 - 0.75*float64(y)/rows
		for x := 0; x < width; x++ {
			hue := 360 * float64(x) / float64(width)
			cr, cg, cb := colorful.Hsv(hue, 1, v).Clamped().RGB255()
			i := x * 4
			row[i+0] = cb
			row[i+1] = cg
			row[i+2] = cr
			row[i+3] = 0xFF
		}
	}
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}
