// cmd/camauth/main.go
package main

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hwerle/camauth/internal/codes"
	"github.com/hwerle/camauth/internal/config"
	"github.com/hwerle/camauth/internal/convert"
	"github.com/hwerle/camauth/internal/host"
	"github.com/hwerle/camauth/internal/logging"
	"github.com/hwerle/camauth/internal/qr"
	"github.com/hwerle/camauth/internal/tui"
	"github.com/hwerle/camauth/pkg/ncam"
)

func main() {
	// Determine the config path
	configDir, err := os.UserConfigDir()
	if err != nil {
		fmt.Printf("Error getting user config directory: %v", err)
		os.Exit(1)
	}
	configPath := filepath.Join(configDir, "camauth", "config.json")

	// Load existing config or create a new one
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v", err)
		os.Exit(1)
	}

	store, err := codes.Open(cfg.StorePath)
	if err != nil {
		fmt.Printf("Error opening code store: %v", err)
		os.Exit(1)
	}

	driver, err := ncam.DriverByName(cfg.CameraConfig.Driver)
	if err != nil {
		fmt.Printf("Error selecting camera driver: %v", err)
		os.Exit(1)
	}

	// Frames are posted to the UI loop via the poster and mirrored onto a
	// channel so the preview server can broadcast them without slowing the
	// driver thread down.
	poster := &tui.Poster{}
	frameCh := make(chan ncam.Frame, 1)
	post := func(msg any) {
		if f, ok := msg.(ncam.Frame); ok {
			select {
			case frameCh <- f:
			default:
			}
		}
		poster.Post(msg)
	}

	controller, err := ncam.NewController(ncam.ControllerConfig{
		Driver:    driver,
		Host:      host.Desktop{},
		Converter: convert.Converter{},
		Decode:    qr.Decode,
		Post:      post,
		Logger:    logging.Logger,
		Facing:    parseFacing(cfg.CameraConfig.Facing),
		Format:    parseFormat(cfg.CameraConfig.Format),
	})
	if err != nil {
		fmt.Printf("Error building capture pipeline: %v", err)
		os.Exit(1)
	}

	model := tui.New(configPath, cfg, store, controller)
	srv := model.Server()

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	poster.Attach(p)

	go func() {
		for frame := range frameCh {
			if !srv.IsRunning() {
				continue
			}
			encoded, err := encodeFrame(frame)
			if err != nil {
				logging.Logger.Printf("Error encoding preview frame: %v", err)
				continue
			}
			srv.BroadcastFrame(encoded)
		}
	}()

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v", err)
		os.Exit(1)
	}
}

func parseFacing(name string) ncam.Facing {
	switch strings.ToLower(name) {
	case "front":
		return ncam.FacingFront
	case "external":
		return ncam.FacingExternal
	default:
		return ncam.FacingBack
	}
}

func parseFormat(name string) int32 {
	switch strings.ToLower(name) {
	case "yuv420", "yuv":
		return ncam.FormatYUV420
	default:
		return ncam.FormatJPEG
	}
}

func encodeFrame(f ncam.Frame) ([]byte, error) {
	img := &image.RGBA{
		Pix:    f.Pix,
		Stride: 4 * f.Width,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
