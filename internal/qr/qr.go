// Package qr scans finished preview frames for QR payloads.
package qr

import (
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/hwerle/camauth/internal/convert"
	"github.com/hwerle/camauth/pkg/ncam"
)

// Decode scans a packed RGBA frame for a QR code and returns its text
// payload. The frame does not need to be upright; the reader handles any
// quarter-turn orientation. Detection only needs brightness, so the frame
// is reduced to its luma plane before it is handed to the bitmap.
func Decode(f ncam.Frame) (string, bool) {
	if f.Width == 0 || f.Height == 0 {
		return "", false
	}

	img := &image.Gray{
		Pix:    convert.Luminance(f),
		Stride: f.Width,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", false
	}

	result, err := qrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		// Most frames simply contain no code; not worth logging.
		return "", false
	}
	return result.String(), true
}
