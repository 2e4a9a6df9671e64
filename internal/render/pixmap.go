// Package render implements the pixel buffer and the transition effect state
// machine used by the frame compositor (package compositor).
package render

// Pixmap is a straightforward RGBA8 pixel buffer, row-major, four bytes per
// pixel (R, G, B, A): a plain byte slice with typed accessors.
type Pixmap struct {
	Width  int
	Height int
	Pix    []byte
}

// NewPixmap allocates a cleared (transparent black) pixmap.
func NewPixmap(width, height int) *Pixmap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Pixmap{Width: width, Height: height, Pix: make([]byte, width*height*4)}
}

// Clear resets every pixel to the given color, alpha included.
func (p *Pixmap) Clear(r, g, b, a uint8) {
	for i := 0; i+3 < len(p.Pix); i += 4 {
		p.Pix[i] = r
		p.Pix[i+1] = g
		p.Pix[i+2] = b
		p.Pix[i+3] = a
	}
}

// Resize reallocates the pixmap if its dimensions changed, clearing it.
func (p *Pixmap) Resize(width, height int) {
	if p.Width == width && p.Height == height {
		return
	}
	p.Width = width
	p.Height = height
	p.Pix = make([]byte, width*height*4)
}

// Set writes a single pixel, silently ignoring out-of-bounds coordinates.
func (p *Pixmap) Set(x, y int, r, g, b, a uint8) {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return
	}
	i := (y*p.Width + x) * 4
	p.Pix[i] = r
	p.Pix[i+1] = g
	p.Pix[i+2] = b
	p.Pix[i+3] = a
}

// At reads a single pixel, returning fully transparent black out of bounds.
func (p *Pixmap) At(x, y int) (r, g, b, a uint8) {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return 0, 0, 0, 0
	}
	i := (y*p.Width + x) * 4
	return p.Pix[i], p.Pix[i+1], p.Pix[i+2], p.Pix[i+3]
}

// drawFull alpha-composites src onto dst at (0,0), src and dst same size.
func drawFull(src, dst *Pixmap) {
	drawOffset(src, dst, 0, 0)
}

// drawOffset alpha-composites src onto dst at the given destination offset.
func drawOffset(src, dst *Pixmap, offX, offY int) {
	for sy := 0; sy < src.Height; sy++ {
		dy := sy + offY
		if dy < 0 || dy >= dst.Height {
			continue
		}
		for sx := 0; sx < src.Width; sx++ {
			dx := sx + offX
			if dx < 0 || dx >= dst.Width {
				continue
			}
			blendPixel(src, dst, sx, sy, dx, dy)
		}
	}
}

// drawRegion copies a w×h rectangle from (srcX,srcY) in src to (dstX,dstY)
// in dst, alpha-compositing each pixel.
func drawRegion(src, dst *Pixmap, dstX, dstY, srcX, srcY, w, h int) {
	for row := 0; row < h; row++ {
		sy := srcY + row
		dy := dstY + row
		if sy < 0 || sy >= src.Height || dy < 0 || dy >= dst.Height {
			continue
		}
		for col := 0; col < w; col++ {
			sx := srcX + col
			dx := dstX + col
			if sx < 0 || sx >= src.Width || dx < 0 || dx >= dst.Width {
				continue
			}
			blendPixel(src, dst, sx, sy, dx, dy)
		}
	}
}

func blendPixel(src, dst *Pixmap, sx, sy, dx, dy int) {
	si := (sy*src.Width + sx) * 4
	di := (dy*dst.Width + dx) * 4
	sa := float64(src.Pix[si+3]) / 255.0
	if sa <= 0 {
		return
	}
	inv := 1 - sa
	dst.Pix[di] = uint8(float64(src.Pix[si]) + float64(dst.Pix[di])*inv)
	dst.Pix[di+1] = uint8(float64(src.Pix[si+1]) + float64(dst.Pix[di+1])*inv)
	dst.Pix[di+2] = uint8(float64(src.Pix[si+2]) + float64(dst.Pix[di+2])*inv)
	dst.Pix[di+3] = uint8((sa + float64(dst.Pix[di+3])/255.0*inv) * 255.0)
}

// drawFaded alpha-composites src onto dst scaling src's own alpha by opacity
// (0..1), used by the fade effect.
func drawFaded(src, dst *Pixmap, opacity float64) {
	for sy := 0; sy < src.Height; sy++ {
		if sy >= dst.Height {
			continue
		}
		for sx := 0; sx < src.Width; sx++ {
			if sx >= dst.Width {
				continue
			}
			si := (sy*src.Width + sx) * 4
			di := (sy*dst.Width + sx) * 4
			sa := float64(src.Pix[si+3]) / 255.0 * opacity
			if sa <= 0 {
				continue
			}
			inv := 1 - sa
			dst.Pix[di] = uint8(float64(src.Pix[si])*opacity + float64(dst.Pix[di])*inv)
			dst.Pix[di+1] = uint8(float64(src.Pix[si+1])*opacity + float64(dst.Pix[di+1])*inv)
			dst.Pix[di+2] = uint8(float64(src.Pix[si+2])*opacity + float64(dst.Pix[di+2])*inv)
			dst.Pix[di+3] = uint8((sa + float64(dst.Pix[di+3])/255.0*inv) * 255.0)
		}
	}
}
