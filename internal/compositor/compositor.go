// Package compositor wires the content renderers and effect state machine
// together into a single per-program, per-frame pixel pipeline.
package compositor

import (
	"github.com/ledsign/boxplayer/internal/metrics"
	"github.com/ledsign/boxplayer/internal/program"
	"github.com/ledsign/boxplayer/internal/render"
	"github.com/ledsign/boxplayer/internal/render/content"
)

// areaState is the per-area playback cursor: which content item is showing
// and its transition progress. One lives per area of the active program.
type areaState struct {
	itemIndex int
	effect    *render.EffectState
}

// Compositor composites one program's areas into a single framebuffer every
// tick, driving each area's own content-item rotation and transition.
type Compositor struct {
	framebuffer    *render.Pixmap
	areaSurface    []*render.Pixmap
	contentSurface []*render.Pixmap
	areaState      []areaState

	images *content.ImageRenderer
	texts  *content.TextRenderer
	clocks *content.ClockRenderer
	gifs   *content.GifRenderer
	videos *content.VideoRenderer

	programDir string
	frame      uint64
	msPerFrame uint64
	activeGUID string // last program rendered, to detect a program swap
}

// NewCompositor allocates the framebuffer and content renderers for a
// width x height x fps display.
func NewCompositor(width, height, fps int, programDir string, extractor content.VideoFrameExtractor) *Compositor {
	if fps <= 0 {
		fps = 30
	}
	return &Compositor{
		framebuffer: render.NewPixmap(width, height),
		images:      content.NewImageRenderer(),
		texts:       content.NewTextRenderer(),
		clocks:      content.NewClockRenderer(),
		gifs:        content.NewGifRenderer(),
		videos:      content.NewVideoRenderer(extractor),
		programDir:  programDir,
		msPerFrame:  uint64(1000 / fps),
	}
}

// Framebuffer returns the composited pixel buffer from the most recent call
// to RenderFrame.
func (c *Compositor) Framebuffer() *render.Pixmap {
	return c.framebuffer
}

// RenderFrame composites one frame of prog and advances the frame counter.
// Areas whose rectangle is empty are skipped entirely, matching the source.
func (c *Compositor) RenderFrame(prog *program.Program) *render.Pixmap {
	elapsedMS := c.frame * c.msPerFrame
	c.framebuffer.Clear(0, 0, 0, 255)

	if prog == nil {
		c.frame++
		metrics.FramesRendered.Inc()
		return c.framebuffer
	}

	if prog.GUID != c.activeGUID {
		c.areaState = make([]areaState, len(prog.Areas))
		c.activeGUID = prog.GUID
	}
	for len(c.areaSurface) < len(prog.Areas) {
		c.areaSurface = append(c.areaSurface, render.NewPixmap(1, 1))
	}
	for len(c.contentSurface) < len(prog.Areas) {
		c.contentSurface = append(c.contentSurface, render.NewPixmap(1, 1))
	}
	for len(c.areaState) < len(prog.Areas) {
		c.areaState = append(c.areaState, areaState{})
	}

	for i := range prog.Areas {
		area := &prog.Areas[i]
		rect := area.Rectangle
		if rect.Empty() {
			continue
		}

		surface := c.areaSurface[i]
		surface.Resize(int(rect.Width), int(rect.Height))
		surface.Clear(0, 0, 0, 0)

		scratch := c.contentSurface[i]
		scratch.Resize(int(rect.Width), int(rect.Height))

		items := area.Resources.Items()
		if len(items) > 0 {
			st := &c.areaState[i]
			if st.effect == nil {
				st.effect = effectStateFor(items[st.itemIndex%len(items)], elapsedMS)
			}
			if st.effect.Update(elapsedMS) {
				st.itemIndex = (st.itemIndex + 1) % len(items)
				st.effect = effectStateFor(items[st.itemIndex], elapsedMS)
			}

			item := items[st.itemIndex%len(items)]
			scratch.Clear(0, 0, 0, 0)
			c.renderItem(item, scratch, elapsedMS)
			render.ApplyEffect(effectInFor(item, st.effect.Phase), st.effect.Progress, st.effect.Phase, scratch, surface)
		}

		alpha := area.AlphaOrDefault()
		blendAreaOntoFramebuffer(surface, c.framebuffer, int(rect.X), int(rect.Y), alpha)
	}

	c.frame++
	metrics.FramesRendered.Inc()
	return c.framebuffer
}

// renderItem dispatches to the content-kind renderer via a type switch over
// the concrete ContentItem, the compositor's one point of polymorphism.
func (c *Compositor) renderItem(item program.ContentItem, surface *render.Pixmap, elapsedMS uint64) {
	switch v := item.(type) {
	case *program.ImageItem:
		c.images.Render(v, surface, c.programDir)
	case *program.VideoItem:
		c.videos.Render(v, surface, c.programDir)
	case *program.TextItem:
		c.texts.Render(v, surface, elapsedMS)
	case *program.ClockItem:
		c.clocks.Render(v, surface)
	case *program.GifItem:
		c.gifs.Render(v, surface, c.programDir, elapsedMS)
	}
}

func effectStateFor(item program.ContentItem, startMS uint64) *render.EffectState {
	eff := item.ItemEffect()
	if eff == nil {
		e := program.DefaultEffect()
		eff = &e
	}
	st := render.NewEffectState(eff.EffectIn, eff.EffectOut, eff.InSpeed, eff.OutSpeed, eff.DurationOrDefault())
	st.PhaseStartMS = startMS
	return st
}

func effectInFor(item program.ContentItem, phase render.EffectPhase) uint8 {
	eff := item.ItemEffect()
	if eff == nil {
		return render.EffectImmediate
	}
	if phase == render.PhaseExiting {
		return eff.EffectOut
	}
	return eff.EffectIn
}

// blendAreaOntoFramebuffer alpha-composites an area's surface onto the main
// framebuffer at its rectangle offset, scaling the surface's own alpha by
// the area's opacity.
func blendAreaOntoFramebuffer(surface, framebuffer *render.Pixmap, x, y int, alpha uint8) {
	opacity := float64(alpha) / 255.0
	for sy := 0; sy < surface.Height; sy++ {
		dy := sy + y
		if dy < 0 || dy >= framebuffer.Height {
			continue
		}
		for sx := 0; sx < surface.Width; sx++ {
			dx := sx + x
			if dx < 0 || dx >= framebuffer.Width {
				continue
			}
			r, g, b, a := surface.At(sx, sy)
			scaled := uint8(float64(a) * opacity)
			if scaled == 0 {
				continue
			}
			dr, dg, db, da := framebuffer.At(dx, dy)
			sa := float64(scaled) / 255.0
			inv := 1 - sa
			framebuffer.Set(dx, dy,
				uint8(float64(r)*opacity+float64(dr)*inv),
				uint8(float64(g)*opacity+float64(dg)*inv),
				uint8(float64(b)*opacity+float64(db)*inv),
				uint8((sa+float64(da)/255.0*inv)*255.0),
			)
		}
	}
}
