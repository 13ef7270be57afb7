package camera

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"time"
)

// Pattern is a synthetic source: a bright square bouncing across a dark
// background. It never fails, which makes it the default for demos and tests.
type Pattern struct {
	width, height int
	interval      time.Duration

	x, y   int
	dx, dy int
	seq    uint64
}

// NewPattern creates a width x height pattern source emitting rate frames
// per second.
func NewPattern(width, height int, rate float64) *Pattern {
	if rate <= 0 {
		rate = 1
	}
	return &Pattern{
		width:    width,
		height:   height,
		interval: time.Duration(float64(time.Second) / rate),
		dx:       PatternStep,
		dy:       PatternStep,
	}
}

// NativeSize implements Source.
func (p *Pattern) NativeSize() (int, int) { return p.width, p.height }

// Run implements Source.
func (p *Pattern) Run(ctx context.Context, onFrame func(Frame)) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			onFrame(p.Next())
		}
	}
}

// Next renders the following frame. Each frame gets its own buffer.
func (p *Pattern) Next() Frame {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{16, 16, 24, 255}}, image.Point{}, draw.Src)

	side := int(float64(min(p.width, p.height)) * PatternSquareFraction)
	sq := image.Rect(p.x, p.y, p.x+side, p.y+side).Intersect(img.Bounds())
	draw.Draw(img, sq, &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	p.advance(side)
	p.seq++

	f := FromImage(img)
	f.Seq = p.seq
	return f
}

func (p *Pattern) advance(side int) {
	p.x += p.dx
	p.y += p.dy
	if p.x < 0 || p.x+side > p.width {
		p.dx = -p.dx
		p.x += 2 * p.dx
	}
	if p.y < 0 || p.y+side > p.height {
		p.dy = -p.dy
		p.y += 2 * p.dy
	}
}
