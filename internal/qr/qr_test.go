package qr

import (
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/hwerle/camauth/pkg/ncam"
)

// frameFromMatrix renders an encoded bit matrix as a packed RGBA frame, the
// same shape the capture pipeline hands to Decode.
func frameFromMatrix(m *gozxing.BitMatrix) ncam.Frame {
	w, h := m.GetWidth(), m.GetHeight()
	pix := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			val := byte(255)
			if m.Get(x, y) {
				val = 0
			}
			o := (y*w + x) * 4
			pix[o] = val
			pix[o+1] = val
			pix[o+2] = val
			pix[o+3] = 255
		}
	}
	return ncam.Frame{Pix: pix, Width: w, Height: h}
}

func TestDecodeRoundTrip(t *testing.T) {
	const payload = "otpauth://totp/Example:alice?secret=GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ&issuer=Example"

	matrix, err := qrcode.NewQRCodeWriter().Encode(payload, gozxing.BarcodeFormat_QR_CODE, 240, 240, nil)
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}

	got, ok := Decode(frameFromMatrix(matrix))
	if !ok {
		t.Fatal("Decode found no code in an encoded frame")
	}
	if got != payload {
		t.Errorf("Decode = %q, want %q", got, payload)
	}
}

func TestDecodeEmptyFrame(t *testing.T) {
	if _, ok := Decode(ncam.Frame{}); ok {
		t.Error("Decode reported a code in a zero frame")
	}

	// A flat grey frame carries nothing to find.
	flat := ncam.Frame{Pix: make([]byte, 64*64*4), Width: 64, Height: 64}
	for i := range flat.Pix {
		flat.Pix[i] = 128
	}
	if _, ok := Decode(flat); ok {
		t.Error("Decode reported a code in a flat frame")
	}
}
