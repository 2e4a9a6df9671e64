package content

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ledsign/boxplayer/internal/program"
	"github.com/ledsign/boxplayer/internal/render"
)

// nativeFaceSize is the point size basicfont.Face7x13 renders at natively.
const nativeFaceSize = 13

// TextRenderer draws TextItem content using the built-in 7x13 bitmap face;
// HDPlayer's own font list is a hardware feature this player has no
// equivalent for, so every text item renders with one fixed face sized to
// the font spec's requested point size by nearest integer scale.
type TextRenderer struct{}

// NewTextRenderer returns a stateless text renderer; there is nothing to
// cache since basicfont.Face7x13 carries no per-file state.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// Render lays out the item's string and draws it into target, honoring
// alignment, color, and (for single-line items) horizontal scroll.
func (r *TextRenderer) Render(item *program.TextItem, target *render.Pixmap, elapsedMS uint64) bool {
	text := item.String
	if text == "" {
		return false
	}

	red, green, blue := program.ParseColor(item.Font.ColorOrDefault())
	col := color.NRGBA{R: red, G: green, B: blue, A: 255}

	face := basicfont.Face7x13
	scale := fontScale(item.Font.SizeOrDefault())
	advance := font.MeasureString(face, text).Ceil()
	lineHeight := face.Metrics().Height.Ceil()
	scaledAdvance := advance * scale
	scaledLineHeight := lineHeight * scale

	w, h := target.Width, target.Height

	offsetX := alignOffset(item.Style.AlignOrDefault(), w, scaledAdvance)
	offsetY := valignOffset(item.Style.VAlignOrDefault(), h, scaledLineHeight)

	if item.SingleLine && scaledAdvance > w {
		total := scaledAdvance + w
		periodMS := uint64(total) * 1000 / scrollPxPerSecond
		if periodMS == 0 {
			periodMS = 1
		}
		progress := int(elapsedMS % periodMS)
		scrollPx := progress * scrollPxPerSecond / 1000
		offsetX = w - scrollPx
	}

	canvas := image.NewRGBA(image.Rect(0, 0, maxI(advance, 1), maxI(lineHeight, 1)))
	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	drawer.DrawString(text)

	blendScaledCanvas(canvas, target, offsetX, offsetY, scale)
	return true
}

// fontScale maps a requested point size onto the nearest integer multiple of
// the built-in face's native size, since a bitmap face can only be scaled by
// whole pixels.
func fontScale(size float64) int {
	scale := int(math.Round(size / nativeFaceSize))
	if scale < 1 {
		scale = 1
	}
	return scale
}

// scrollPxPerSecond matches the source's fixed 50px/sec marquee speed.
const scrollPxPerSecond = 50

func alignOffset(align string, width, textWidth int) int {
	switch align {
	case "left":
		return 0
	case "right":
		return maxI(width-textWidth, 0)
	default:
		return maxI((width-textWidth)/2, 0)
	}
}

func valignOffset(valign string, height, lineHeight int) int {
	switch valign {
	case "top":
		return 0
	case "bottom":
		return maxI(height-lineHeight, 0)
	default:
		return maxI((height-lineHeight)/2, 0)
	}
}

func maxI(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// blendScaledCanvas alpha-composites canvas onto target at (offsetX,
// offsetY), replicating each canvas pixel into a scale x scale block — a
// nearest-neighbor integer upscale appropriate for a bitmap face.
func blendScaledCanvas(canvas draw.Image, target *render.Pixmap, offsetX, offsetY, scale int) {
	rgba, ok := canvas.(*image.RGBA)
	if !ok {
		return
	}
	bounds := rgba.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			i := rgba.PixOffset(x, y)
			a := rgba.Pix[i+3]
			if a == 0 {
				continue
			}
			r, g, b := rgba.Pix[i], rgba.Pix[i+1], rgba.Pix[i+2]
			for sy := 0; sy < scale; sy++ {
				for sx := 0; sx < scale; sx++ {
					blendOnto(target, offsetX+x*scale+sx, offsetY+y*scale+sy, r, g, b, a)
				}
			}
		}
	}
}
