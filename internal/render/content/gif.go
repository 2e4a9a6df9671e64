package content

import (
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"os"
	"path/filepath"

	"github.com/ledsign/boxplayer/internal/program"
	"github.com/ledsign/boxplayer/internal/render"
)

type gifFrame struct {
	pix          *render.Pixmap
	cumulativeMS uint64
}

type gifData struct {
	frames         []gifFrame
	totalMS        uint64
}

// GifRenderer decodes and caches animated GIFs, picking the frame that
// matches the area's elapsed playback time.
type GifRenderer struct {
	cache map[string]*gifData
}

// NewGifRenderer allocates an empty decode cache.
func NewGifRenderer() *GifRenderer {
	return &GifRenderer{cache: make(map[string]*gifData)}
}

// Render draws the frame of the named GIF current at elapsedMS.
func (r *GifRenderer) Render(item *program.GifItem, target *render.Pixmap, programDir string, elapsedMS uint64) bool {
	data, err := r.load(item.File.Name, programDir)
	if err != nil || data == nil || len(data.frames) == 0 {
		return false
	}
	loopTime := elapsedMS % data.totalMS
	idx := 0
	for i, f := range data.frames {
		if loopTime >= f.cumulativeMS {
			idx = i
		} else {
			break
		}
	}
	scaleInto(data.frames[idx].pix, target, float64(target.Width)/float64(data.frames[idx].pix.Width),
		float64(target.Height)/float64(data.frames[idx].pix.Height), 0, 0)
	return true
}

func (r *GifRenderer) load(filename, programDir string) (*gifData, error) {
	if d, ok := r.cache[filename]; ok {
		return d, nil
	}
	path := filepath.Join(programDir, filename)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("content: open gif %s: %w", path, err)
	}
	defer f.Close()

	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("content: decode gif %s: %w", path, err)
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	canvas := image.NewRGBA(bounds)

	var frames []gifFrame
	var cumulative uint64
	for i, frameImg := range g.Image {
		draw.Draw(canvas, frameImg.Bounds(), frameImg, frameImg.Bounds().Min, draw.Over)

		snapshot := render.NewPixmap(bounds.Dx(), bounds.Dy())
		copy(snapshot.Pix, canvas.Pix)

		delayMS := uint64(g.Delay[i]) * 10
		if delayMS == 0 {
			delayMS = 100
		}
		frames = append(frames, gifFrame{pix: snapshot, cumulativeMS: cumulative})
		cumulative += delayMS

		if i < len(g.Disposal) && g.Disposal[i] == gif.DisposalBackground {
			draw.Draw(canvas, frameImg.Bounds(), image.Transparent, image.Point{}, draw.Src)
		}
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("content: gif %s has no frames", filename)
	}

	data := &gifData{frames: frames, totalMS: cumulative}
	r.cache[filename] = data
	return data, nil
}
