// Package render draws forecast grids and catalog markers onto a raster
// surface and answers pointer hit-tests.
package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/fogleman/gg"
)

// Surface is the capability set the painter draws through. Implementations
// are selected at construction time, so one painter serves every backend
// instead of one near-duplicate painter per backend.
type Surface interface {
	Clear(c color.Color)
	FillRect(x, y, w, h float64, c color.Color)
	FillCircle(x, y, r float64, c color.Color)
	Label(text string, x, y float64, c color.Color)
	Image() image.Image
}

// GGSurface is the default raster backend built on fogleman/gg.
type GGSurface struct {
	dc *gg.Context
}

// NewGGSurface creates a raster surface of the given pixel size.
func NewGGSurface(width, height int) *GGSurface {
	return &GGSurface{dc: gg.NewContext(width, height)}
}

// Clear fills the whole surface with a single color.
func (s *GGSurface) Clear(c color.Color) {
	s.dc.SetColor(c)
	s.dc.Clear()
}

// FillRect fills an axis-aligned pixel rectangle.
func (s *GGSurface) FillRect(x, y, w, h float64, c color.Color) {
	s.dc.SetColor(c)
	s.dc.DrawRectangle(x, y, w, h)
	s.dc.Fill()
}

// FillCircle fills a circle centered at (x, y).
func (s *GGSurface) FillCircle(x, y, r float64, c color.Color) {
	s.dc.SetColor(c)
	s.dc.DrawCircle(x, y, r)
	s.dc.Fill()
}

// Label draws centered text at (x, y).
func (s *GGSurface) Label(text string, x, y float64, c color.Color) {
	s.dc.SetColor(c)
	s.dc.DrawStringAnchored(text, x, y, 0.5, 0.5)
}

// Image returns the backing image.
func (s *GGSurface) Image() image.Image {
	return s.dc.Image()
}

var pngBufPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 32*1024))
	},
}

// EncodePNG encodes a surface with the fast PNG encoder.
func EncodePNG(s Surface) ([]byte, error) {
	buf := pngBufPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		pngBufPool.Put(buf)
	}()

	encoder := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := encoder.Encode(buf, s.Image()); err != nil {
		return nil, err
	}

	// Copy out, the buffer is reused.
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}
