package content

import (
	"image"
	"image/color"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ledsign/boxplayer/internal/program"
	"github.com/ledsign/boxplayer/internal/render"
)

// ClockRenderer draws ClockItem content: a stack of date/week/time lines,
// each independently toggled and colored, centered in the target area.
type ClockRenderer struct{}

// NewClockRenderer returns a stateless clock renderer.
func NewClockRenderer() *ClockRenderer {
	return &ClockRenderer{}
}

type clockLine struct {
	text string
	col  color.NRGBA
}

// Render lays out the clock's enabled fields using the current local time.
func (r *ClockRenderer) Render(item *program.ClockItem, target *render.Pixmap) bool {
	now := time.Now()
	var lines []clockLine

	if item.Date != nil && item.Date.Display {
		lines = append(lines, clockLine{text: formatDate(now, item.Date.Format), col: lineColor(item.Date.ColorOrDefault())})
	}
	if item.Week != nil && item.Week.Display {
		lines = append(lines, clockLine{text: formatWeek(now, item.Week.Format), col: lineColor(item.Week.ColorOrDefault())})
	}
	if item.Time != nil && item.Time.Display {
		lines = append(lines, clockLine{text: formatTime(now, item.Time.Format), col: lineColor(item.Time.ColorOrDefault())})
	}
	if len(lines) == 0 {
		lines = append(lines, clockLine{text: now.Format("15:04:05"), col: color.NRGBA{R: 255, G: 255, B: 255, A: 255}})
	}

	face := basicfont.Face7x13
	lineHeight := face.Metrics().Height.Ceil()
	totalHeight := lineHeight * len(lines)
	startY := maxI((target.Height-totalHeight)/2, 0)

	canvas := image.NewRGBA(image.Rect(0, 0, target.Width, target.Height))
	for i, line := range lines {
		advance := font.MeasureString(face, line.text).Ceil()
		x := maxI((target.Width-advance)/2, 0)
		y := startY + i*lineHeight + face.Metrics().Ascent.Ceil()

		drawer := &font.Drawer{
			Dst:  canvas,
			Src:  image.NewUniform(line.col),
			Face: face,
			Dot:  fixed.P(x, y),
		}
		drawer.DrawString(line.text)
	}

	blendScaledCanvas(canvas, target, 0, 0, 1)
	return true
}

func lineColor(hex string) color.NRGBA {
	r, g, b := program.ParseColor(hex)
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

func formatDate(now time.Time, format string) string {
	switch format {
	case "2":
		return now.Format("01/02/2006")
	case "3":
		return now.Format("02/01/2006")
	case "4":
		return now.Format("Jan 2, 2006")
	case "5":
		return now.Format("2 Jan, 2006")
	default:
		return now.Format("2006/01/02")
	}
}

func formatWeek(now time.Time, format string) string {
	switch format {
	case "3":
		return now.Format("Mon")
	default:
		return now.Format("Monday")
	}
}

func formatTime(now time.Time, format string) string {
	switch format {
	case "2":
		return now.Format("15:04")
	case "3":
		return now.Format("03:04:05 PM")
	case "4":
		return now.Format("03:04 PM")
	default:
		return now.Format("15:04:05")
	}
}
