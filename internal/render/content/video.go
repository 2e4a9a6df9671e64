package content

import (
	"path/filepath"

	"github.com/ledsign/boxplayer/internal/program"
	"github.com/ledsign/boxplayer/internal/render"
)

// VideoFrameExtractor produces a still RGBA frame representing a video file,
// letting the player defer to an external decoder (ffmpeg, gstreamer) when
// one is available without the renderer itself linking any video codec.
type VideoFrameExtractor interface {
	ExtractFirstFrame(path string) (*render.Pixmap, error)
}

// VideoRenderer displays a still thumbnail in place of full video decoding;
// wiring a real decoder only requires supplying a VideoFrameExtractor.
type VideoRenderer struct {
	extractor VideoFrameExtractor
	cache     map[string]*render.Pixmap
}

// NewVideoRenderer builds a renderer. extractor may be nil, in which case
// every video item falls back to the built-in placeholder frame.
func NewVideoRenderer(extractor VideoFrameExtractor) *VideoRenderer {
	return &VideoRenderer{extractor: extractor, cache: make(map[string]*render.Pixmap)}
}

// Render draws the video's thumbnail (or placeholder) scaled into target.
func (r *VideoRenderer) Render(item *program.VideoItem, target *render.Pixmap, programDir string) bool {
	thumb := r.thumbnail(item.File.Name, programDir)
	if thumb == nil {
		return false
	}

	scaleX := float64(target.Width) / float64(thumb.Width)
	scaleY := float64(target.Height) / float64(thumb.Height)
	if item.AspectPreserve {
		s := minF(scaleX, scaleY)
		scaleX, scaleY = s, s
	}
	offX := (float64(target.Width) - float64(thumb.Width)*scaleX) / 2
	offY := (float64(target.Height) - float64(thumb.Height)*scaleY) / 2
	scaleInto(thumb, target, scaleX, scaleY, offX, offY)
	return true
}

func (r *VideoRenderer) thumbnail(filename, programDir string) *render.Pixmap {
	if p, ok := r.cache[filename]; ok {
		return p
	}

	var pix *render.Pixmap
	if r.extractor != nil {
		path := filepath.Join(programDir, filename)
		if p, err := r.extractor.ExtractFirstFrame(path); err == nil && p != nil {
			pix = p
		}
	}
	if pix == nil {
		pix = placeholderFrame()
	}
	r.cache[filename] = pix
	return pix
}

// placeholderFrame draws a dark gray card with a centered play triangle,
// the fallback rendered when no frame extractor is available.
func placeholderFrame() *render.Pixmap {
	const w, h = 320, 240
	pix := render.NewPixmap(w, h)
	pix.Clear(30, 30, 30, 255)

	cx, cy, size := w/2, h/2, 30
	for y := cy - size; y <= cy+size; y++ {
		dy := y - cy
		if dy < 0 {
			dy = -dy
		}
		halfW := size - dy
		for x := cx - size/3; x < cx-size/3+halfW; x++ {
			pix.Set(x, y, 200, 200, 200, 255)
		}
	}
	return pix
}
