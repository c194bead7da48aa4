package capture

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeAlphaForcesOpaque(t *testing.T) {
	res := &Result{
		Width:        2,
		Height:       1,
		BitsPerPixel: 32,
		Stride:       8,
		Pix:          []byte{1, 2, 3, 0, 4, 5, 6, 0x7f},
	}
	require.NoError(t, NormalizeAlpha(res))
	require.Equal(t, []byte{1, 2, 3, 0xff, 4, 5, 6, 0xff}, res.Pix)
}

func TestNormalizeAlphaIdempotent(t *testing.T) {
	pix := make([]byte, 4*16)
	for i := range pix {
		pix[i] = byte(i * 7)
	}
	res := &Result{Width: 4, Height: 4, BitsPerPixel: 32, Stride: 16, Pix: pix}

	require.NoError(t, NormalizeAlpha(res))
	once := bytes.Clone(res.Pix)
	require.NoError(t, NormalizeAlpha(res))
	require.Equal(t, once, res.Pix)
}

func TestNormalizeAlphaRejectsOtherFormats(t *testing.T) {
	cases := map[string]*Result{
		"nil":     nil,
		"16bpp":   {Width: 2, Height: 1, BitsPerPixel: 16, Stride: 4, Pix: make([]byte, 4)},
		"partial": {Width: 1, Height: 1, BitsPerPixel: 32, Stride: 4, Pix: make([]byte, 6)},
	}
	for name, res := range cases {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, NormalizeAlpha(res), ErrUnsupportedFormat)
		})
	}
}
