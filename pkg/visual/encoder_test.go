package visual

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	layererr "github.com/decisionlayer/tickbatch/pkg/errors"
)

func solidColor(w, h int, r, g, b byte) ImageBuffer {
	pix := make([]byte, w*h*3)
	for i := 0; i < len(pix); i += 3 {
		pix[i], pix[i+1], pix[i+2] = r, g, b
	}
	return ImageBuffer{Width: w, Height: h, Pixels: pix}
}

func TestEncodeSolidColor(t *testing.T) {
	buf := solidColor(4, 3, 128, 128, 128)

	out, err := Encode([]ImageBuffer{buf}, false)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 4, 3}, out.Shape)

	want := float32(128) / 255
	for _, v := range out.Floats {
		assert.InDelta(t, want, v, 1e-6)
	}
}

func TestEncodeGrayscaleAveragesChannels(t *testing.T) {
	buf := solidColor(2, 2, 30, 60, 90)

	out, err := Encode([]ImageBuffer{buf}, true)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 2, 1}, out.Shape)

	want := float32(30+60+90) / 3 / 255
	for _, v := range out.Floats {
		assert.InDelta(t, want, v, 1e-6)
	}
}

// markerRows builds an image whose logical row r (top-to-bottom) holds the
// value r in every channel. The buffer stores rows bottom-to-top.
func markerRows(w, h int) ImageBuffer {
	pix := make([]byte, w*h*3)
	for logical := 0; logical < h; logical++ {
		stored := h - 1 - logical
		row := pix[stored*w*3 : (stored+1)*w*3]
		for i := range row {
			row[i] = byte(logical)
		}
	}
	return ImageBuffer{Width: w, Height: h, Pixels: pix}
}

func TestEncodeFlipsRowOrder(t *testing.T) {
	out, err := Encode([]ImageBuffer{markerRows(3, 5)}, false)
	require.NoError(t, err)

	rowStride := 3 * 3
	for h := 0; h < 5; h++ {
		want := float32(h) / 255
		row := out.Floats[h*rowStride : (h+1)*rowStride]
		for _, v := range row {
			assert.InDelta(t, want, v, 1e-6, "tensor row %d must hold marker %d", h, h)
		}
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	bufs := []ImageBuffer{markerRows(4, 4), solidColor(4, 4, 9, 9, 9)}

	a, err := Encode(bufs, false)
	require.NoError(t, err)
	b, err := Encode(bufs, false)
	require.NoError(t, err)

	assert.Equal(t, a.Floats, b.Floats)
	assert.Equal(t, []int{2, 4, 4, 3}, a.Shape)
}

func TestEncodeRejectsMixedSizes(t *testing.T) {
	_, err := Encode([]ImageBuffer{solidColor(2, 2, 0, 0, 0), solidColor(3, 2, 0, 0, 0)}, false)
	require.Error(t, err)
	assert.Equal(t, layererr.CodeShapeMismatch, layererr.CodeOf(err))
}

func TestEncodeRejectsTruncatedBuffer(t *testing.T) {
	bad := ImageBuffer{Width: 2, Height: 2, Pixels: make([]byte, 5)}
	_, err := Encode([]ImageBuffer{bad}, true)
	require.Error(t, err)
	assert.Equal(t, layererr.CodeShapeMismatch, layererr.CodeOf(err))
}

func TestEncodeNoBuffers(t *testing.T) {
	_, err := Encode(nil, false)
	assert.Error(t, err)
}
