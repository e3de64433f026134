package render

import (
	"bytes"
	"fmt"
	"image"
	"math"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	xdraw "golang.org/x/image/draw"
	rpdf "rsc.io/pdf"
)

// TemplateExtractionError means the branding template could not be turned
// into a background raster.
type TemplateExtractionError struct {
	Reason string
	Err    error
}

func (e *TemplateExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("template: %s: %v", e.Reason, e.Err)
	}
	return "template: " + e.Reason
}

func (e *TemplateExtractionError) Unwrap() error { return e.Err }

// Template is the shared background for directional pages. It is read-only
// once built and may be used by any number of renders at the same time.
type Template struct {
	img *image.RGBA
	// Page is the 1-based template page the raster came from, 0 for image
	// templates.
	Page int
}

// NewTemplate wraps an already rendered background.
func NewTemplate(img image.Image) *Template {
	return &Template{img: flatten(img)}
}

// Bounds is the size of the background in pixels.
func (t *Template) Bounds() image.Rectangle { return t.img.Bounds() }

var pdfcpuOnce sync.Once

// PDFConfig returns a pdfcpu configuration that never touches the user's
// config directory.
func PDFConfig() *model.Configuration {
	pdfcpuOnce.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// LoadTemplate builds a Template from a PDF or an image. For PDFs the second
// page is used when there is one, else the first; its largest embedded
// raster is scaled to the page size at dpi.
func LoadTemplate(data []byte, dpi float64) (*Template, error) {
	if len(data) == 0 {
		return nil, &TemplateExtractionError{Reason: "empty template"}
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF")) {
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, &TemplateExtractionError{Reason: "neither a PDF nor a supported image", Err: err}
		}
		return NewTemplate(img), nil
	}

	pageNr, wPt, hPt, drawn, err := templatePage(data)
	if err != nil {
		return nil, err
	}
	img, err := largestImage(data, pageNr, drawn)
	if err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = 200
	}
	w := int(math.Round(wPt * dpi / 72))
	h := int(math.Round(hPt * dpi / 72))
	if w <= 0 || h <= 0 {
		return nil, &TemplateExtractionError{Reason: fmt.Sprintf("page %d has an empty media box", pageNr)}
	}
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, xdraw.Src)
	xdraw.CatmullRom.Scale(canvas, canvas.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return &Template{img: canvas, Page: pageNr}, nil
}

// templatePage picks the background page and returns its media box size in
// points and the XObject names its content stream paints with Do.
func templatePage(data []byte) (pageNr int, w, h float64, drawn map[string]bool, err error) {
	defer func() {
		// rsc.io/pdf panics on malformed input
		if r := recover(); r != nil {
			err = &TemplateExtractionError{Reason: "unreadable PDF", Err: fmt.Errorf("%v", r)}
		}
	}()
	doc, err := rpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, 0, 0, nil, &TemplateExtractionError{Reason: "unreadable PDF", Err: err}
	}
	n := doc.NumPage()
	if n == 0 {
		return 0, 0, 0, nil, &TemplateExtractionError{Reason: "PDF has no pages"}
	}
	pageNr = 1
	if n > 1 {
		pageNr = 2
	}
	page := doc.Page(pageNr)
	box := page.V.Key("MediaBox")
	for p := page.V.Key("Parent"); box.Kind() != rpdf.Array && p.Kind() == rpdf.Dict; p = p.Key("Parent") {
		box = p.Key("MediaBox")
	}
	if box.Kind() != rpdf.Array || box.Len() != 4 {
		return 0, 0, 0, nil, &TemplateExtractionError{Reason: fmt.Sprintf("page %d has no media box", pageNr)}
	}
	w = math.Abs(box.Index(2).Float64() - box.Index(0).Float64())
	h = math.Abs(box.Index(3).Float64() - box.Index(1).Float64())

	content, err := pageContent(page.V.Key("Contents"))
	if err != nil {
		return 0, 0, 0, nil, &TemplateExtractionError{Reason: fmt.Sprintf("reading content of page %d", pageNr), Err: err}
	}
	return pageNr, w, h, drawnXObjects(content), nil
}

// pageContent concatenates a page's content stream or stream array.
func pageContent(v rpdf.Value) ([]byte, error) {
	var buf bytes.Buffer
	streams := []rpdf.Value{v}
	if v.Kind() == rpdf.Array {
		streams = streams[:0]
		for i := 0; i < v.Len(); i++ {
			streams = append(streams, v.Index(i))
		}
	}
	for _, s := range streams {
		if s.Kind() != rpdf.Stream {
			continue
		}
		rc := s.Reader()
		_, err := buf.ReadFrom(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

var doOperator = regexp.MustCompile(`/([^\s/\[\]()<>{}%]+)\s+Do\b`)

// drawnXObjects returns the resource names painted by Do in a content stream.
// Shared resource dictionaries list images of other pages too.
func drawnXObjects(content []byte) map[string]bool {
	out := make(map[string]bool)
	for _, m := range doOperator.FindAllSubmatch(content, -1) {
		out[string(m[1])] = true
	}
	return out
}

func largestImage(data []byte, pageNr int, drawn map[string]bool) (image.Image, error) {
	pages, err := api.ExtractImagesRaw(bytes.NewReader(data), []string{strconv.Itoa(pageNr)}, PDFConfig())
	if err != nil {
		return nil, &TemplateExtractionError{Reason: fmt.Sprintf("extracting images from page %d", pageNr), Err: err}
	}
	var best image.Image
	bestArea := 0
	for _, imgs := range pages {
		objNrs := make([]int, 0, len(imgs))
		for nr := range imgs {
			objNrs = append(objNrs, nr)
		}
		sort.Ints(objNrs)
		for _, nr := range objNrs {
			if !drawn[imgs[nr].Name] {
				continue
			}
			img, _, err := image.Decode(imgs[nr])
			if err != nil {
				continue
			}
			if a := img.Bounds().Dx() * img.Bounds().Dy(); a > bestArea {
				best, bestArea = img, a
			}
		}
	}
	if best == nil {
		return nil, &TemplateExtractionError{Reason: fmt.Sprintf("page %d has no extractable raster image", pageNr)}
	}
	return best, nil
}
