// Package visual packs raw pixel buffers into the 4-D observation tensor
// fed to the inference backend. It is stateless and usable outside the
// tick pipeline.
package visual

import (
	layererr "github.com/decisionlayer/tickbatch/pkg/errors"
	"github.com/decisionlayer/tickbatch/pkg/tensor"
)

// ImageBuffer is one raw camera frame. Pixels holds 3 bytes per pixel
// (RGB) with rows stored bottom-to-top, the capture order of the
// simulation's render readback.
type ImageBuffer struct {
	Width  int
	Height int
	Pixels []byte
}

// Valid reports whether the pixel slice matches the declared dimensions.
func (b ImageBuffer) Valid() bool {
	return b.Width > 0 && b.Height > 0 && len(b.Pixels) == b.Width*b.Height*3
}

// Encode packs equally-sized frames into a [batch, height, width, channels]
// float32 tensor. channels is 1 when grayscale, else 3. Each channel byte
// is normalized to [0,1] by dividing by 255; the grayscale value is the
// unweighted mean of the three color channels.
//
// Tensor row h corresponds to source pixel row (height-1-h): the buffer's
// bottom-to-top order is flipped so tensor row 0 is the top of the image.
// Models are trained against this exact mapping.
func Encode(buffers []ImageBuffer, grayscale bool) (*tensor.Tensor, error) {
	if len(buffers) == 0 {
		return nil, layererr.New(layererr.CodeShapeMismatch, "visual encode: no buffers")
	}

	width, height := buffers[0].Width, buffers[0].Height
	channels := 3
	if grayscale {
		channels = 1
	}

	for i, b := range buffers {
		if !b.Valid() {
			return nil, layererr.Newf(layererr.CodeShapeMismatch,
				"visual encode: buffer %d has %d pixel bytes, want %d for %dx%d",
				i, len(b.Pixels), b.Width*b.Height*3, b.Width, b.Height)
		}
		if b.Width != width || b.Height != height {
			return nil, layererr.Newf(layererr.CodeShapeMismatch,
				"visual encode: buffer %d is %dx%d, batch is %dx%d",
				i, b.Width, b.Height, width, height)
		}
	}

	// One flat buffer, filled with explicit strides rather than per-pixel
	// multi-dimensional indexing.
	batchStride := height * width * channels
	rowStride := width * channels
	flat := make([]float32, len(buffers)*batchStride)

	for n, b := range buffers {
		base := n * batchStride
		for h := 0; h < height; h++ {
			src := b.Pixels[(height-1-h)*width*3 : (height-h)*width*3]
			dst := flat[base+h*rowStride : base+(h+1)*rowStride]
			if grayscale {
				for w := 0; w < width; w++ {
					sum := uint32(src[w*3]) + uint32(src[w*3+1]) + uint32(src[w*3+2])
					dst[w] = float32(sum) / 3 / 255
				}
			} else {
				for i, px := range src {
					dst[i] = float32(px) / 255
				}
			}
		}
	}

	return tensor.FromFloats(flat, len(buffers), height, width, channels)
}
