// Package render turns uploaded photographs into single-page PDF documents:
// full-view pages are the photo as is, directional pages put the photo on a
// captioned background.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/thywilljoshua/inspection-report/internal/upload"
)

// Options controls page geometry. Vertical offsets are fractions of the
// canvas height so layouts follow the template's resolution.
type Options struct {
	// CanvasWidth and CanvasHeight size the blank background used when there
	// is no template.
	CanvasWidth  int
	CanvasHeight int
	// CanvasDPI maps directional canvases to page points.
	CanvasDPI float64
	// FullPageDPI maps full-view photos to page points.
	FullPageDPI float64
	// TargetWidth and TargetHeight are the box every directional photo is
	// scaled to.
	TargetWidth  int
	TargetHeight int
	JobLineY     float64
	TitleLineY   float64
	ImageTopY    float64
	JPEGQuality  int
}

// DefaultOptions is a US Letter canvas at 200 dpi.
func DefaultOptions() Options {
	return Options{
		CanvasWidth:  1700,
		CanvasHeight: 2200,
		CanvasDPI:    200,
		FullPageDPI:  72,
		TargetWidth:  1600,
		TargetHeight: 1200,
		JobLineY:     0.07,
		TitleLineY:   0.11,
		ImageTopY:    0.165,
		JPEGQuality:  92,
	}
}

// Validate rejects geometry that cannot produce a page.
func (o Options) Validate() error {
	switch {
	case o.CanvasWidth <= 0 || o.CanvasHeight <= 0:
		return fmt.Errorf("canvas size must be positive, got %dx%d", o.CanvasWidth, o.CanvasHeight)
	case o.TargetWidth <= 0 || o.TargetHeight <= 0:
		return fmt.Errorf("target size must be positive, got %dx%d", o.TargetWidth, o.TargetHeight)
	case o.CanvasDPI <= 0 || o.FullPageDPI <= 0:
		return fmt.Errorf("dpi must be positive")
	case o.JPEGQuality < 1 || o.JPEGQuality > 100:
		return fmt.Errorf("jpeg quality must be within 1..100, got %d", o.JPEGQuality)
	}
	for _, f := range []float64{o.JobLineY, o.TitleLineY, o.ImageTopY} {
		if f < 0 || f > 1 {
			return fmt.Errorf("vertical offsets must be fractions of the page height, got %v", f)
		}
	}
	return nil
}

// DecodeError means an upload is not a readable image.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("cannot read image %s: %v", e.Name, e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// Page is one rendered report page.
type Page struct {
	PDF []byte
	// Size is the raster size in pixels.
	Size image.Point
	// Caption holds the text lines drawn on the page, empty for full views.
	Caption []string
}

// Renderer draws pages. It holds no per-request state and is safe for
// concurrent use.
type Renderer struct {
	font *Font
	opts Options
	log  *zap.Logger
}

// New returns a Renderer. The font is required: captions are never drawn
// with a substitute.
func New(f *Font, opts Options, log *zap.Logger) (*Renderer, error) {
	if f == nil {
		return nil, &FontUnavailableError{Candidates: DefaultFontPaths}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{font: f, opts: opts, log: log}, nil
}

// Options returns the geometry in use.
func (r *Renderer) Options() Options { return r.opts }

// RenderFullPage wraps the photo unchanged apart from flattening it to
// opaque RGB.
func (r *Renderer) RenderFullPage(f upload.File) (*Page, error) {
	img, err := decode(f)
	if err != nil {
		return nil, err
	}
	rgb := flatten(img)
	data, err := encodePDF(rgb, r.opts.FullPageDPI, r.opts.JPEGQuality, f.Name())
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", f.Name(), err)
	}
	r.log.Debug("rendered full page", zap.String("file", f.Name()), zap.Int("bytes", len(data)))
	return &Page{PDF: data, Size: rgb.Bounds().Size()}, nil
}

// RenderDirectionalPage draws the job name and title near the top of the
// background and the photo, scaled to the target box, centred beneath them.
// A nil template means a blank canvas.
func (r *Renderer) RenderDirectionalPage(tpl *Template, jobName, title string, f upload.File) (*Page, error) {
	img, err := decode(f)
	if err != nil {
		return nil, err
	}
	canvas, err := r.compose(tpl, jobName, title, img)
	if err != nil {
		return nil, err
	}
	data, err := encodePDF(canvas, r.opts.CanvasDPI, r.opts.JPEGQuality, title)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", f.Name(), err)
	}
	r.log.Debug("rendered directional page",
		zap.String("file", f.Name()),
		zap.String("title", title),
		zap.Bool("template", tpl != nil))
	return &Page{PDF: data, Size: canvas.Bounds().Size(), Caption: []string{jobName, title}}, nil
}

func (r *Renderer) compose(tpl *Template, jobName, title string, img image.Image) (*image.RGBA, error) {
	canvas := r.canvas(tpl)
	b := canvas.Bounds()
	w, h := b.Dx(), b.Dy()

	face, err := r.font.Face()
	if err != nil {
		return nil, &FontUnavailableError{Path: r.font.Path, Err: err}
	}
	defer face.Close()

	drawCentered(canvas, face, jobName, w/2, int(float64(h)*r.opts.JobLineY))
	drawCentered(canvas, face, title, w/2, int(float64(h)*r.opts.TitleLineY))

	if w < r.opts.TargetWidth {
		r.log.Warn("background narrower than photo box, photo will be clipped",
			zap.Int("background_width", w),
			zap.Int("target_width", r.opts.TargetWidth))
	}
	x0 := (w - r.opts.TargetWidth) / 2
	y0 := int(float64(h) * r.opts.ImageTopY)
	box := image.Rect(x0, y0, x0+r.opts.TargetWidth, y0+r.opts.TargetHeight)
	src := flatten(img)
	xdraw.CatmullRom.Scale(canvas, box, src, src.Bounds(), xdraw.Src, nil)
	return canvas, nil
}

func (r *Renderer) canvas(tpl *Template) *image.RGBA {
	if tpl != nil {
		c := image.NewRGBA(tpl.img.Bounds())
		copy(c.Pix, tpl.img.Pix)
		return c
	}
	c := image.NewRGBA(image.Rect(0, 0, r.opts.CanvasWidth, r.opts.CanvasHeight))
	xdraw.Draw(c, c.Bounds(), image.White, image.Point{}, xdraw.Src)
	return c
}

// drawCentered draws s with its middle at (cx, cy).
func drawCentered(dst *image.RGBA, face font.Face, s string, cx, cy int) {
	if s == "" {
		return
	}
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(color.Black), Face: face}
	m := face.Metrics()
	width := d.MeasureString(s)
	d.Dot = fixed.Point26_6{
		X: fixed.I(cx) - width/2,
		Y: fixed.I(cy) + (m.Ascent-m.Descent)/2,
	}
	d.DrawString(s)
}

func decode(f upload.File) (image.Image, error) {
	data, err := f.Bytes()
	if err != nil {
		return nil, &DecodeError{Name: f.Name(), Err: err}
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Name: f.Name(), Err: err}
	}
	return img, nil
}

// flatten copies img onto an opaque white RGBA canvas anchored at the origin.
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(out, out.Bounds(), image.White, image.Point{}, xdraw.Src)
	xdraw.Draw(out, out.Bounds(), img, b.Min, xdraw.Over)
	return out
}
