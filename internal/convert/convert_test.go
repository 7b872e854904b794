package convert

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"github.com/hwerle/camauth/pkg/ncam"
)

func TestYUV420ToRGBANeutralChroma(t *testing.T) {
	// With both chroma planes at 128 every pixel comes out grey at its own
	// luma value.
	const w, h = 4, 2
	y := []byte{0, 64, 128, 255, 0, 64, 128, 255}
	u := []byte{128, 128}
	v := []byte{128, 128}

	pix := YUV420ToRGBA(y, w, u, w/2, v, w/2, w, h)
	for i, want := range y {
		o := i * 4
		if pix[o] != want || pix[o+1] != want || pix[o+2] != want {
			t.Errorf("pixel %d = (%d, %d, %d), want grey %d", i, pix[o], pix[o+1], pix[o+2], want)
		}
		if pix[o+3] != 255 {
			t.Errorf("pixel %d alpha = %d, want 255", i, pix[o+3])
		}
	}
}

func TestYUV420ToRGBAChroma(t *testing.T) {
	// Full positive V at mid luma: red saturates, green drops, blue holds.
	const w, h = 2, 2
	y := []byte{128, 128, 128, 128}
	u := []byte{128}
	v := []byte{255}

	pix := YUV420ToRGBA(y, w, u, 1, v, 1, w, h)
	r, g, b := pix[0], pix[1], pix[2]
	if r != 255 {
		t.Errorf("red = %d, want saturated 255", r)
	}
	if g != 38 {
		t.Errorf("green = %d, want 38", g)
	}
	if b != 128 {
		t.Errorf("blue = %d, want 128", b)
	}
}

// rgbaGrid builds a 2x2 packed buffer from four solid colors in row order.
func rgbaGrid(colors ...[4]byte) []byte {
	pix := make([]byte, 0, len(colors)*4)
	for _, c := range colors {
		pix = append(pix, c[:]...)
	}
	return pix
}

func pixelAt(pix []byte, w, row, col int) [4]byte {
	o := (row*w + col) * 4
	return [4]byte{pix[o], pix[o+1], pix[o+2], pix[o+3]}
}

func TestRotateRGBA(t *testing.T) {
	red := [4]byte{255, 0, 0, 255}
	green := [4]byte{0, 255, 0, 255}
	blue := [4]byte{0, 0, 255, 255}
	white := [4]byte{255, 255, 255, 255}

	// Source layout:  red  green
	//                 blue white
	src := rgbaGrid(red, green, blue, white)

	tests := []struct {
		name string
		rot  ncam.Rotation
		want [][4]byte // row order after rotation
	}{
		{"identity", ncam.Deg0, [][4]byte{red, green, blue, white}},
		{"quarter turn", ncam.Deg90, [][4]byte{blue, red, white, green}},
		{"half turn", ncam.Deg180, [][4]byte{white, blue, green, red}},
		{"three quarters", ncam.Deg270, [][4]byte{green, white, red, blue}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, w, h := RotateRGBA(src, 2, 2, tt.rot)
			if w != 2 || h != 2 {
				t.Fatalf("dims = %dx%d, want 2x2", w, h)
			}
			for i, want := range tt.want {
				got := pixelAt(out, w, i/2, i%2)
				if got != want {
					t.Errorf("pixel %d = %v, want %v", i, got, want)
				}
			}
		})
	}
}

func TestRotateRGBASwapsDimensions(t *testing.T) {
	src := make([]byte, 6*2*4)
	out, w, h := RotateRGBA(src, 6, 2, ncam.Deg90)
	if w != 2 || h != 6 {
		t.Errorf("rotated dims = %dx%d, want 2x6", w, h)
	}
	if len(out) != len(src) {
		t.Errorf("rotated buffer has %d bytes, want %d", len(out), len(src))
	}
}

func TestConvertYUVFrame(t *testing.T) {
	const w, h = 4, 2
	y := make([]byte, w*h)
	for i := range y {
		y[i] = 200
	}
	u := []byte{128, 128}
	v := []byte{128, 128}

	frame, err := Converter{}.Convert(ncam.PlaneImage{
		Config: ncam.StreamConfiguration{Format: ncam.FormatYUV420, Width: w, Height: h},
		Planes: []ncam.Plane{
			{Data: y, RowStride: w, PixelStride: 1},
			{Data: u, RowStride: w / 2, PixelStride: 1},
			{Data: v, RowStride: w / 2, PixelStride: 1},
		},
	}, ncam.Deg90)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if frame.Width != h || frame.Height != w {
		t.Errorf("frame is %dx%d, want %dx%d", frame.Width, frame.Height, h, w)
	}
	if frame.Pix[0] != 200 {
		t.Errorf("first pixel = %d, want 200", frame.Pix[0])
	}
}

func TestConvertJPEGFrame(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}

	frame, err := Converter{}.Convert(ncam.PlaneImage{
		Config: ncam.StreamConfiguration{Format: ncam.FormatJPEG, Width: 8, Height: 4},
		Planes: []ncam.Plane{{Data: buf.Bytes(), RowStride: int32(buf.Len()), PixelStride: 1}},
	}, ncam.Deg270)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if frame.Width != 4 || frame.Height != 8 {
		t.Errorf("frame is %dx%d, want 4x8", frame.Width, frame.Height)
	}
}

func TestConvertRejectsBadInput(t *testing.T) {
	if _, err := Converter{}.Convert(ncam.PlaneImage{
		Config: ncam.StreamConfiguration{Format: ncam.FormatYUV420, Width: 4, Height: 2},
		Planes: []ncam.Plane{{Data: make([]byte, 8)}},
	}, ncam.Deg0); err == nil {
		t.Error("yuv frame with one plane accepted")
	}

	if _, err := Converter{}.Convert(ncam.PlaneImage{
		Config: ncam.StreamConfiguration{Format: ncam.FormatRAW16, Width: 4, Height: 2},
		Planes: []ncam.Plane{{Data: make([]byte, 16)}},
	}, ncam.Deg0); err == nil {
		t.Error("unsupported format accepted")
	}
}

func TestLuminance(t *testing.T) {
	frame := ncam.Frame{
		Pix: []byte{
			255, 0, 0, 255, // red
			0, 255, 0, 255, // green
			0, 0, 255, 255, // blue
			255, 255, 255, 255, // white
		},
		Width:  2,
		Height: 2,
	}
	grey := Luminance(frame)
	want := []byte{76, 149, 29, 255}
	for i := range want {
		if grey[i] != want[i] {
			t.Errorf("luma %d = %d, want %d", i, grey[i], want[i])
		}
	}
}
