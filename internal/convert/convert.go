// Package convert turns raw camera planes into packed RGBA frames and
// applies quarter-turn rotations. All functions are pure; no resource
// lifetimes are involved.
package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"

	"github.com/hwerle/camauth/pkg/ncam"
)

// Converter implements ncam.Converter for the stream formats the pipeline
// negotiates: planar YUV 4:2:0 and single-plane JPEG.
type Converter struct{}

func (Converter) Convert(img ncam.PlaneImage, rot ncam.Rotation) (ncam.Frame, error) {
	w, h := int(img.Config.Width), int(img.Config.Height)

	var pix []byte
	switch img.Config.Format {
	case ncam.FormatYUV420:
		if len(img.Planes) < 3 {
			return ncam.Frame{}, fmt.Errorf("yuv frame with %d planes", len(img.Planes))
		}
		pix = YUV420ToRGBA(
			img.Planes[0].Data, int(img.Planes[0].RowStride),
			img.Planes[1].Data, int(img.Planes[1].RowStride),
			img.Planes[2].Data, int(img.Planes[2].RowStride),
			w, h,
		)
	case ncam.FormatJPEG:
		if len(img.Planes) < 1 {
			return ncam.Frame{}, fmt.Errorf("jpeg frame without plane data")
		}
		decoded, err := jpeg.Decode(bytes.NewReader(img.Planes[0].Data))
		if err != nil {
			return ncam.Frame{}, fmt.Errorf("decoding jpeg plane: %w", err)
		}
		bounds := decoded.Bounds()
		w, h = bounds.Dx(), bounds.Dy()
		rgba := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(rgba, rgba.Bounds(), decoded, bounds.Min, draw.Src)
		pix = rgba.Pix
	default:
		return ncam.Frame{}, fmt.Errorf("unsupported stream format %#x", img.Config.Format)
	}

	pix, w, h = RotateRGBA(pix, w, h, rot)
	return ncam.Frame{Pix: pix, Width: w, Height: h}, nil
}

// YUV420ToRGBA converts planar YUV 4:2:0 (full range, BT.601) into packed
// RGBA. Chroma planes are subsampled by two in both directions.
func YUV420ToRGBA(y []byte, yStride int, u []byte, uStride int, v []byte, vStride int, w, h int) []byte {
	pix := make([]byte, w*h*4)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			yy := int(y[row*yStride+col])
			uu := int(u[(row/2)*uStride+col/2]) - 128
			vv := int(v[(row/2)*vStride+col/2]) - 128

			// BT.601 full-range coefficients in 16.16 fixed point.
			r := yy + (91881*vv)>>16
			g := yy - ((22554*uu)+(46802*vv))>>16
			b := yy + (116130*uu)>>16

			o := (row*w + col) * 4
			pix[o] = clamp8(r)
			pix[o+1] = clamp8(g)
			pix[o+2] = clamp8(b)
			pix[o+3] = 255
		}
	}
	return pix
}

// RotateRGBA rotates a packed RGBA buffer clockwise by the given quarter
// turn. For 90 and 270 degrees the returned dimensions are swapped.
func RotateRGBA(pix []byte, w, h int, rot ncam.Rotation) ([]byte, int, int) {
	if rot == ncam.Deg0 {
		return pix, w, h
	}

	dw, dh := w, h
	if rot.SwapsDimensions() {
		dw, dh = h, w
	}
	out := make([]byte, len(pix))
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			var dr, dc int
			switch rot {
			case ncam.Deg90:
				dr, dc = col, h-1-row
			case ncam.Deg180:
				dr, dc = h-1-row, w-1-col
			case ncam.Deg270:
				dr, dc = w-1-col, row
			}
			src := (row*w + col) * 4
			dst := (dr*dw + dc) * 4
			copy(out[dst:dst+4], pix[src:src+4])
		}
	}
	return out, dw, dh
}

// Luminance extracts an 8-bit grey buffer from a packed RGBA frame, for
// payload scanners that work on luma.
func Luminance(f ncam.Frame) []byte {
	grey := make([]byte, f.Width*f.Height)
	for i := range grey {
		o := i * 4
		// Integer BT.601 luma weights.
		grey[i] = byte((299*int(f.Pix[o]) + 587*int(f.Pix[o+1]) + 114*int(f.Pix[o+2])) / 1000)
	}
	return grey
}

func clamp8(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
