package render

import (
	"bytes"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/thywilljoshua/inspection-report/internal/fixture"
	"github.com/thywilljoshua/inspection-report/internal/upload"
)

func smallOptions() Options {
	o := DefaultOptions()
	o.CanvasWidth, o.CanvasHeight = 170, 220
	o.TargetWidth, o.TargetHeight = 160, 120
	o.CanvasDPI = 20
	return o
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	f, err := LoadFont([]string{fixture.FontPath(t)}, 12)
	require.NoError(t, err)
	r, err := New(f, smallOptions(), nil)
	require.NoError(t, err)
	return r
}

func pageCount(t *testing.T, pdf []byte) int {
	t.Helper()
	n, err := api.PageCount(bytes.NewReader(pdf), PDFConfig())
	require.NoError(t, err)
	return n
}

func TestLoadFont(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.ttf")

	_, err := LoadFont([]string{missing}, 50)
	var fe *FontUnavailableError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, []string{missing}, fe.Candidates)
	assert.Empty(t, fe.Path)
	assert.Contains(t, err.Error(), missing)

	good := fixture.FontPath(t)
	f, err := LoadFont([]string{missing, good}, 50)
	require.NoError(t, err)
	assert.Equal(t, good, f.Path)
	assert.Equal(t, 50.0, f.Size)

	corrupt := filepath.Join(dir, "corrupt.ttf")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a font"), 0o644))
	_, err = LoadFont([]string{corrupt, good}, 50)
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, corrupt, fe.Path)
	assert.Error(t, fe.Unwrap())
}

func TestNewRequiresFont(t *testing.T) {
	_, err := New(nil, DefaultOptions(), nil)
	var fe *FontUnavailableError
	assert.True(t, errors.As(err, &fe))
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	o := DefaultOptions()
	o.TargetWidth = 0
	assert.Error(t, o.Validate())

	o = DefaultOptions()
	o.ImageTopY = 1.5
	assert.Error(t, o.Validate())

	o = DefaultOptions()
	o.JPEGQuality = 0
	assert.Error(t, o.Validate())
}

func TestRenderFullPage(t *testing.T) {
	r := newRenderer(t)
	p, err := r.RenderFullPage(fixture.PNG(t, "launcher.png", 40, 30, fixture.Green))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(40, 30), p.Size)
	assert.Empty(t, p.Caption)
	assert.Equal(t, 1, pageCount(t, p.PDF))

	dims, err := api.PageDims(bytes.NewReader(p.PDF), PDFConfig())
	require.NoError(t, err)
	require.Len(t, dims, 1)
	assert.InDelta(t, 40, dims[0].Width, 0.01)
	assert.InDelta(t, 30, dims[0].Height, 0.01)
}

func TestRenderFullPageFlattensAlpha(t *testing.T) {
	r := newRenderer(t)
	p, err := r.RenderFullPage(fixture.PNG(t, "launcher.png", 10, 10, image.Transparent))
	require.NoError(t, err)
	assert.Equal(t, 1, pageCount(t, p.PDF))
}

func TestRenderRejectsUndecodable(t *testing.T) {
	r := newRenderer(t)
	_, err := r.RenderFullPage(upload.Mem{FileName: "launcher.jpg", Data: []byte("nope")})
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "launcher.jpg", de.Name)

	_, err = r.RenderDirectionalPage(nil, "Job", "Launcher North", upload.Mem{FileName: "launcher n.jpg"})
	assert.True(t, errors.As(err, &de))
}

func TestRenderDirectionalPage(t *testing.T) {
	r := newRenderer(t)
	p, err := r.RenderDirectionalPage(nil, "Job123", "Launcher North", fixture.PNG(t, "launcher n.png", 32, 24, fixture.Red))
	require.NoError(t, err)
	assert.Equal(t, []string{"Job123", "Launcher North"}, p.Caption)
	assert.Equal(t, image.Pt(170, 220), p.Size)
	assert.Equal(t, 1, pageCount(t, p.PDF))
}

func darkPixels(img *image.RGBA, y0, y1 int) int {
	n := 0
	for y := y0; y < y1; y++ {
		for x := 0; x < img.Bounds().Dx(); x++ {
			if img.RGBAAt(x, y).R < 128 && img.RGBAAt(x, y).B < 128 {
				n++
			}
		}
	}
	return n
}

func TestComposeBlankCanvas(t *testing.T) {
	r := newRenderer(t)
	canvas, err := r.compose(nil, "Job123", "Launcher North", fixture.Solid(32, 24, fixture.Red))
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 170, 220), canvas.Bounds())
	assert.Equal(t, uint8(255), canvas.RGBAAt(0, 0).G, "corner stays white")

	h := 220.0
	jobY := int(h * 0.07)
	titleY := int(h * 0.11)
	assert.Positive(t, darkPixels(canvas, jobY-6, jobY+6), "job name drawn")
	assert.Positive(t, darkPixels(canvas, titleY-6, titleY+6), "title drawn")

	top := int(h * 0.165)
	c := canvas.RGBAAt(85, top+60)
	assert.Greater(t, c.R, uint8(240))
	assert.Less(t, c.G, uint8(20))
	assert.Equal(t, uint8(255), canvas.RGBAAt(2, top+60).G, "photo is centred in a 160px box")
	assert.Equal(t, uint8(255), canvas.RGBAAt(85, top+125).G, "photo ends at the box")
}

func TestComposeUsesTemplate(t *testing.T) {
	r := newRenderer(t)
	tpl := NewTemplate(fixture.Solid(200, 260, fixture.Blue))
	canvas, err := r.compose(tpl, "Job123", "Receiver West", fixture.Solid(10, 10, fixture.Red))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 260), canvas.Bounds())
	assert.Equal(t, fixture.Blue, canvas.RGBAAt(1, 1))

	// the template is shared and must not be drawn on
	assert.Equal(t, fixture.Blue, tpl.img.RGBAAt(100, 260*165/1000+50))
}

func TestLoadTemplateFromPDF(t *testing.T) {
	data := fixture.TemplatePDF(t, 3, 2, 100, 150, fixture.Blue)
	tpl, err := LoadTemplate(data, 72)
	require.NoError(t, err)
	assert.Equal(t, 2, tpl.Page)
	assert.Equal(t, image.Rect(0, 0, 100, 150), tpl.Bounds())
	c := tpl.img.RGBAAt(50, 75)
	assert.Greater(t, c.B, uint8(200))
	assert.Less(t, c.R, uint8(60))

	tpl, err = LoadTemplate(data, 144)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 300), tpl.Bounds())
}

func TestLoadTemplateSinglePage(t *testing.T) {
	tpl, err := LoadTemplate(fixture.TemplatePDF(t, 1, 1, 80, 80, fixture.Green), 72)
	require.NoError(t, err)
	assert.Equal(t, 1, tpl.Page)
}

func TestLoadTemplateFromImage(t *testing.T) {
	tpl, err := LoadTemplate(fixture.JPEG(t, 30, 40, fixture.Blue), 200)
	require.NoError(t, err)
	assert.Equal(t, 0, tpl.Page)
	assert.Equal(t, image.Rect(0, 0, 30, 40), tpl.Bounds())
}

func TestLoadTemplateFailures(t *testing.T) {
	cases := map[string][]byte{
		"empty":       nil,
		"not pdf":     []byte("hello"),
		"broken pdf":  []byte("%PDF-1.4\nthis is not a pdf"),
		"no raster":   fixture.TemplatePDF(t, 2, 0, 100, 100, fixture.Blue),
		"raster on 1": fixture.TemplatePDF(t, 2, 1, 100, 100, fixture.Blue),
		"raster on 3": fixture.TemplatePDF(t, 3, 3, 100, 100, fixture.Blue),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadTemplate(data, 72)
			var te *TemplateExtractionError
			assert.True(t, errors.As(err, &te), "got %v", err)
		})
	}
}

// twoImageTemplate puts a large red cover on page 1 and a small blue
// background on page 2. fpdf shares one resource dictionary across pages.
func twoImageTemplate(t *testing.T) []byte {
	t.Helper()
	pdf := fpdf.New("P", "pt", "", "")
	size := fpdf.SizeType{Wd: 100, Ht: 100}
	opts := fpdf.ImageOptions{ImageType: "JPG"}

	pdf.AddPageFormat("P", size)
	pdf.RegisterImageOptionsReader("cover", opts, bytes.NewReader(fixture.JPEG(t, 200, 200, fixture.Red)))
	pdf.ImageOptions("cover", 0, 0, 100, 100, false, opts, 0, "")

	pdf.AddPageFormat("P", size)
	pdf.RegisterImageOptionsReader("bg", opts, bytes.NewReader(fixture.JPEG(t, 100, 100, fixture.Blue)))
	pdf.ImageOptions("bg", 0, 0, 100, 100, false, opts, 0, "")

	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

func TestLoadTemplateIgnoresImagesOfOtherPages(t *testing.T) {
	tpl, err := LoadTemplate(twoImageTemplate(t), 72)
	require.NoError(t, err)
	assert.Equal(t, 2, tpl.Page)
	c := tpl.img.RGBAAt(50, 50)
	assert.Greater(t, c.B, uint8(200), "page 2 background used")
	assert.Less(t, c.R, uint8(60), "page 1 cover not used")
}

func TestDrawnXObjects(t *testing.T) {
	content := []byte("q 100 0 0 100 0 0 cm /I1 Do Q\nBT /F1 12 Tf (Do) Tj ET\n/Fm2 Do\nq /Im#203 Do Q")
	assert.Equal(t, map[string]bool{"I1": true, "Fm2": true, "Im#203": true}, drawnXObjects(content))
	assert.Empty(t, drawnXObjects([]byte("0 0 m 10 10 l S /F1 12 Tf")))
}

func TestComposeWarnsWhenBackgroundIsNarrow(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	f, err := LoadFont([]string{fixture.FontPath(t)}, 12)
	require.NoError(t, err)
	r, err := New(f, smallOptions(), zap.New(core))
	require.NoError(t, err)

	_, err = r.compose(nil, "Job123", "Launcher North", fixture.Solid(8, 6, fixture.Red))
	require.NoError(t, err)
	assert.Zero(t, logs.Len(), "blank canvas fits the box")

	_, err = r.compose(NewTemplate(fixture.Solid(100, 140, fixture.Blue)), "Job123", "Launcher North", fixture.Solid(8, 6, fixture.Red))
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, int64(100), entry.ContextMap()["background_width"])
	assert.Equal(t, int64(160), entry.ContextMap()["target_width"])
}
