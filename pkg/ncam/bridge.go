package ncam

import "log"

// Frame is one finished preview frame in packed RGBA order, ready for the
// UI layer.
type Frame struct {
	Pix    []byte
	Width  int
	Height int
}

// CodeScanned is posted to the UI when a decoded frame carried a readable
// payload.
type CodeScanned struct {
	Payload string
}

// PlaneImage is the raw planar view of one delivered frame handed to the
// converter. Plane data is only valid for the duration of the Convert call.
type PlaneImage struct {
	Config StreamConfiguration
	Planes []Plane
}

// Converter turns a raw planar frame into packed RGBA, applying the given
// rotation. For quarter-turn rotations the returned frame has width and
// height swapped relative to the stream configuration.
type Converter interface {
	Convert(img PlaneImage, rot Rotation) (Frame, error)
}

// DecodeFunc scans a finished frame for an embedded payload. It returns
// false when the frame carries none.
type DecodeFunc func(f Frame) (string, bool)

// PostFunc enqueues a message onto the UI event loop. It must be safe to
// call from any goroutine and must not block waiting for the UI.
type PostFunc func(msg any)

// Bridge receives frame-available callbacks on driver-owned threads and
// turns them into UI messages. Per invocation it acquires the newest image
// (older undelivered frames are dropped), converts and rotates it, releases
// the image and posts the result. A failing frame is logged and skipped; it
// never aborts the session.
type Bridge struct {
	reader   *ImageReader
	cfg      StreamConfiguration
	rotation Rotation
	convert  Converter
	decode   DecodeFunc
	post     PostFunc
	log      *log.Logger
}

func newBridge(reader *ImageReader, cfg StreamConfiguration, rot Rotation, convert Converter, decode DecodeFunc, post PostFunc, logger *log.Logger) *Bridge {
	return &Bridge{
		reader:   reader,
		cfg:      cfg,
		rotation: rot,
		convert:  convert,
		decode:   decode,
		post:     post,
		log:      logger,
	}
}

// onImageAvailable runs once per delivered frame, on the driver's thread.
func (b *Bridge) onImageAvailable() {
	img, err := b.reader.AcquireLatest()
	if err != nil {
		b.log.Printf("ncam: dropping frame: %v", err)
		return
	}

	frame, err := b.convertImage(img)
	img.Close()
	if err != nil {
		b.log.Printf("ncam: dropping frame: %v", err)
		return
	}

	var payload string
	var found bool
	if b.decode != nil {
		payload, found = b.decode(frame)
	}

	b.post(frame)
	if found {
		b.post(CodeScanned{Payload: payload})
	}
}

// convertImage extracts the raw planes and runs the converter while the
// image is still held, so the converter sees live buffers.
func (b *Bridge) convertImage(img *Image) (Frame, error) {
	planes := make([]Plane, 0, planeCount(b.cfg.Format))
	for i := int32(0); i < int32(planeCount(b.cfg.Format)); i++ {
		p, err := img.Plane(i)
		if err != nil {
			return Frame{}, err
		}
		planes = append(planes, p)
	}
	return b.convert.Convert(PlaneImage{Config: b.cfg, Planes: planes}, b.rotation)
}

func planeCount(format int32) int {
	if format == FormatYUV420 {
		return 3
	}
	return 1
}
