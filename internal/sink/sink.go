// Package sink implements the pixel sink trio the player hands composited
// frames to: a PNG file written periodically, raw bytes on stdout, and a
// hardware framebuffer device node that receives the raw bytes as-is.
package sink

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"github.com/ledsign/boxplayer/internal/render"
)

// Sink is the single contract every output mode satisfies: accept one
// composited frame, do whatever the mode requires with it.
type Sink interface {
	Write(pix *render.Pixmap) error
	Close() error
}

// PNGSink writes the framebuffer to a fixed path every interval frames
// rather than writing one file per frame.
type PNGSink struct {
	path     string
	interval uint64
	frame    uint64
}

// NewPNGSink returns a sink that saves to path every interval frames; the
// caller passes fps*5 for a "snapshot every 5 seconds" cadence.
func NewPNGSink(path string, interval uint64) *PNGSink {
	if interval == 0 {
		interval = 1
	}
	return &PNGSink{path: path, interval: interval}
}

// Write saves the frame to disk when the interval has elapsed.
func (s *PNGSink) Write(pix *render.Pixmap) error {
	defer func() { s.frame++ }()
	if s.frame != 0 && s.frame%s.interval != 0 {
		return nil
	}
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("sink: create %s: %w", s.path, err)
	}
	defer f.Close()

	img := image.NewNRGBA(image.Rect(0, 0, pix.Width, pix.Height))
	for y := 0; y < pix.Height; y++ {
		for x := 0; x < pix.Width; x++ {
			r, g, b, a := pix.At(x, y)
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: a})
		}
	}
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("sink: encode png %s: %w", s.path, err)
	}
	return nil
}

// Close is a no-op; PNGSink opens and closes a fresh file handle per write.
func (s *PNGSink) Close() error { return nil }

// RawSink writes the premultiplied RGBA bytes of every frame to a writer
// (stdout in production): 4 x width x height bytes per frame, no framing.
type RawSink struct {
	w io.Writer
}

// NewRawSink wraps the destination writer.
func NewRawSink(w io.Writer) *RawSink {
	return &RawSink{w: w}
}

// Write emits the pixmap's backing byte slice unmodified.
func (s *RawSink) Write(pix *render.Pixmap) error {
	_, err := s.w.Write(pix.Pix)
	if err != nil {
		return fmt.Errorf("sink: raw write: %w", err)
	}
	return nil
}

// Close is a no-op for a caller-owned writer such as os.Stdout.
func (s *RawSink) Close() error { return nil }

// FramebufferSink targets a hardware display device. It writes each frame's
// premultiplied RGBA bytes to the device node unchanged; no conversion to a
// device-specific pixel format is done.
type FramebufferSink struct {
	f *os.File
}

// NewFramebufferSink opens the device node for writing.
func NewFramebufferSink(devicePath string) (*FramebufferSink, error) {
	f, err := os.OpenFile(devicePath, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("sink: open framebuffer device %s: %w", devicePath, err)
	}
	return &FramebufferSink{f: f}, nil
}

// Write copies raw pixel bytes to the device node.
func (s *FramebufferSink) Write(pix *render.Pixmap) error {
	_, err := s.f.Write(pix.Pix)
	if err != nil {
		return fmt.Errorf("sink: framebuffer write: %w", err)
	}
	return nil
}

// Close releases the device node.
func (s *FramebufferSink) Close() error {
	return s.f.Close()
}
