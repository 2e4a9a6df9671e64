// Package content implements the per-content-kind renderers that draw one
// resource item (image, video, text, clock, gif) onto an area's scratch
// pixmap: one file per kind.
package content

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"

	"github.com/ledsign/boxplayer/internal/program"
	"github.com/ledsign/boxplayer/internal/render"
)

// ImageRenderer draws ImageItem content, caching decoded pixmaps by
// filename for the lifetime of the renderer.
type ImageRenderer struct {
	cache map[string]*render.Pixmap
}

// NewImageRenderer allocates an empty decode cache.
func NewImageRenderer() *ImageRenderer {
	return &ImageRenderer{cache: make(map[string]*render.Pixmap)}
}

// Render draws the named image into target, scaled per the item's fit mode.
// It reports whether anything was drawn.
func (r *ImageRenderer) Render(item *program.ImageItem, target *render.Pixmap, programDir string) bool {
	src, err := r.load(item.File.Name, programDir)
	if err != nil || src == nil {
		return false
	}
	drawFit(src, target, item.FitOrDefault())
	return true
}

func (r *ImageRenderer) load(filename, programDir string) (*render.Pixmap, error) {
	if p, ok := r.cache[filename]; ok {
		return p, nil
	}
	path := filepath.Join(programDir, filename)
	img, err := decodeImageFile(path)
	if err != nil {
		return nil, err
	}
	pix := fromImage(img)
	r.cache[filename] = pix
	return pix, nil
}

// decodeImageFile decodes files with a .bmp extension via x/image (a format
// HDPlayer's SDK also accepts) and everything else, such as PNG/JPEG, via
// the standard library.
func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("content: open image %s: %w", path, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".bmp") {
		return bmp.Decode(f)
	}
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("content: decode image %s: %w", path, err)
	}
	return img, nil
}

// fromImage converts a decoded image.Image into our premultiplied RGBA8
// Pixmap, matching the alpha convention the compositor assumes throughout.
func fromImage(img image.Image) *render.Pixmap {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	pix := render.NewPixmap(w, h)
	copy(pix.Pix, rgba.Pix)
	return pix
}

// drawFit composites src onto dst according to the named fit mode:
// stretch, fill (crop to cover), center (no scale), or fit (default,
// scale to contain).
func drawFit(src, dst *render.Pixmap, fit string) {
	if src.Width == 0 || src.Height == 0 || dst.Width == 0 || dst.Height == 0 {
		return
	}
	srcW, srcH := float64(src.Width), float64(src.Height)
	dstW, dstH := float64(dst.Width), float64(dst.Height)

	switch fit {
	case "stretch":
		scaleInto(src, dst, dstW/srcW, dstH/srcH, 0, 0)
	case "fill":
		scale := maxF(dstW/srcW, dstH/srcH)
		ox := (dstW - srcW*scale) / 2
		oy := (dstH - srcH*scale) / 2
		scaleInto(src, dst, scale, scale, ox, oy)
	case "center":
		ox := (dstW - srcW) / 2
		oy := (dstH - srcH) / 2
		scaleInto(src, dst, 1, 1, ox, oy)
	default: // "fit"
		scale := minF(dstW/srcW, dstH/srcH)
		ox := (dstW - srcW*scale) / 2
		oy := (dstH - srcH*scale) / 2
		scaleInto(src, dst, scale, scale, ox, oy)
	}
}

// scaleInto nearest-neighbor samples src into dst at the given scale and
// destination offset, alpha-compositing each pixel.
func scaleInto(src, dst *render.Pixmap, scaleX, scaleY, offX, offY float64) {
	dstW := float64(src.Width) * scaleX
	dstH := float64(src.Height) * scaleY
	x0, y0 := int(offX), int(offY)
	x1, y1 := int(offX+dstW), int(offY+dstH)

	for dy := y0; dy < y1; dy++ {
		if dy < 0 || dy >= dst.Height {
			continue
		}
		sy := int(float64(dy-y0) / scaleY)
		if sy < 0 || sy >= src.Height {
			continue
		}
		for dx := x0; dx < x1; dx++ {
			if dx < 0 || dx >= dst.Width {
				continue
			}
			sx := int(float64(dx-x0) / scaleX)
			if sx < 0 || sx >= src.Width {
				continue
			}
			r, g, b, a := src.At(sx, sy)
			blendOnto(dst, dx, dy, r, g, b, a)
		}
	}
}

func blendOnto(dst *render.Pixmap, x, y int, r, g, b, a uint8) {
	if a == 0 {
		return
	}
	dr, dg, db, da := dst.At(x, y)
	sa := float64(a) / 255.0
	inv := 1 - sa
	dst.Set(x, y,
		uint8(float64(r)+float64(dr)*inv),
		uint8(float64(g)+float64(dg)*inv),
		uint8(float64(b)+float64(db)*inv),
		uint8((sa+float64(da)/255.0*inv)*255.0),
	)
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
