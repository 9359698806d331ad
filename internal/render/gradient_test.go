package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStyle(t *testing.T) {
	tests := []struct {
		in      string
		want    Style
		wantErr bool
	}{
		{in: "", want: StyleCorner},
		{in: "corner", want: StyleCorner},
		{in: "hsv", want: StyleHSV},
		{in: "plasma", wantErr: true},
		{in: "Corner", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseStyle(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestStyleString(t *testing.T) {
	assert.Equal(t, "corner", StyleCorner.String())
	assert.Equal(t, "hsv", StyleHSV.String())
}

func pixelAt(pix []byte, x, y, stride int) (b, g, r, a byte) {
	i := y*stride + x*4
	return pix[i], pix[i+1], pix[i+2], pix[i+3]
}

func TestPaintCorner(t *testing.T) {
	const w, h = 4, 4
	pix := make([]byte, w*h*4)
	require.NoError(t, Paint(StyleCorner, pix, w, h, w*4))

	// Red anchored top left.
	b, g, r, a := pixelAt(pix, 0, 0, w*4)
	assert.Equal(t, byte(255), r)
	assert.Equal(t, byte(0), g)
	assert.Equal(t, byte(0), b)
	assert.Equal(t, byte(255), a)

	// Green dominates top right.
	b, g, r, _ = pixelAt(pix, 3, 0, w*4)
	assert.Equal(t, byte(63), r)
	assert.Equal(t, byte(191), g)
	assert.Equal(t, byte(0), b)

	// Blue dominates bottom left.
	b, g, r, _ = pixelAt(pix, 0, 3, w*4)
	assert.Equal(t, byte(63), r)
	assert.Equal(t, byte(0), g)
	assert.Equal(t, byte(191), b)

	// All three ramps meet at the bottom right.
	b, g, r, _ = pixelAt(pix, 3, 3, w*4)
	assert.Equal(t, byte(63), r)
	assert.Equal(t, byte(63), g)
	assert.Equal(t, byte(63), b)
}

func TestPaintOpaqueEverywhere(t *testing.T) {
	const w, h = 16, 9
	for _, style := range []Style{StyleCorner, StyleHSV} {
		pix := make([]byte, w*h*4)
		require.NoError(t, Paint(style, pix, w, h, w*4))
		for i := 3; i < len(pix); i += 4 {
			require.Equal(t, byte(0xFF), pix[i], "style %s pixel %d", style, i/4)
		}
	}
}

func TestPaintRespectsStride(t *testing.T) {
	const w, h = 3, 2
	const stride = 5 * 4 // two pixels of slack per row
	pix := make([]byte, stride*h)
	require.NoError(t, Paint(StyleCorner, pix, w, h, stride))

	for y := 0; y < h; y++ {
		for i := y*stride + w*4; i < (y+1)*stride; i++ {
			assert.Zero(t, pix[i], "padding byte %d written", i)
		}
	}
}

func TestPaintHSV(t *testing.T) {
	const w, h = 8, 8
	pix := make([]byte, w*h*4)
	require.NoError(t, Paint(StyleHSV, pix, w, h, w*4))

	// Hue zero at the left edge is pure red at full value.
	b, g, r, _ := pixelAt(pix, 0, 0, w*4)
	assert.Equal(t, byte(255), r)
	assert.Equal(t, byte(0), g)
	assert.Equal(t, byte(0), b)

	// Value fades toward the bottom, so the last row is dimmer.
	_, _, rBottom, _ := pixelAt(pix, 0, h-1, w*4)
	assert.Less(t, rBottom, r)
	assert.NotZero(t, rBottom)
}

func TestPaintSingleRow(t *testing.T) {
	pix := make([]byte, 4*4)
	assert.NoError(t, Paint(StyleHSV, pix, 4, 1, 16))
	assert.NoError(t, Paint(StyleCorner, pix, 4, 1, 16))
}

func TestPaintErrors(t *testing.T) {
	pix := make([]byte, 64)
	assert.Error(t, Paint(StyleCorner, pix, 0, 4, 16), "zero width")
	assert.Error(t, Paint(StyleCorner, pix, 4, -1, 16), "negative height")
	assert.Error(t, Paint(StyleCorner, pix, 4, 4, 8), "stride below width")
	assert.Error(t, Paint(StyleCorner, pix[:32], 4, 4, 16), "short buffer")
	assert.Error(t, Paint(Style(42), pix, 4, 4, 16), "unknown style")
}
