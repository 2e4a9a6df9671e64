package content

import (
	"testing"

	"github.com/ledsign/boxplayer/internal/program"
	"github.com/ledsign/boxplayer/internal/render"
)

func TestVideoRendererFallsBackToPlaceholder(t *testing.T) {
	r := NewVideoRenderer(nil)
	item := &program.VideoItem{File: program.FileRef{Name: "clip.mp4"}}
	target := render.NewPixmap(64, 64)

	if ok := r.Render(item, target, t.TempDir()); !ok {
		t.Fatalf("expected the placeholder path to always succeed")
	}
	var lit bool
	for i := 0; i+3 < len(target.Pix); i += 4 {
		if target.Pix[i] != 0 || target.Pix[i+1] != 0 || target.Pix[i+2] != 0 {
			lit = true
			break
		}
	}
	if !lit {
		t.Fatalf("expected the placeholder card to paint non-black pixels")
	}
}

type fakeExtractor struct {
	pix *render.Pixmap
}

func (f fakeExtractor) ExtractFirstFrame(path string) (*render.Pixmap, error) {
	return f.pix, nil
}

func TestVideoRendererUsesExtractorWhenProvided(t *testing.T) {
	frame := render.NewPixmap(16, 16)
	frame.Clear(255, 0, 0, 255)
	r := NewVideoRenderer(fakeExtractor{pix: frame})
	item := &program.VideoItem{File: program.FileRef{Name: "clip.mp4"}}
	target := render.NewPixmap(16, 16)

	if ok := r.Render(item, target, t.TempDir()); !ok {
		t.Fatalf("expected render to succeed")
	}
	rr, _, _, a := target.At(8, 8)
	if a == 0 || rr < 200 {
		t.Fatalf("expected the extractor's red frame to be drawn, got r=%d a=%d", rr, a)
	}
}

func TestVideoRendererCachesThumbnailByFilename(t *testing.T) {
	r := NewVideoRenderer(nil)
	p1 := r.thumbnail("clip.mp4", t.TempDir())
	p2 := r.thumbnail("clip.mp4", t.TempDir())
	if p1 != p2 {
		t.Fatalf("expected the cached placeholder to be reused across calls")
	}
}
