// Package fixture builds in-memory inputs for tests: photos, a caption font
// and template PDFs.
package fixture

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/thywilljoshua/inspection-report/internal/upload"
)

var (
	Red   = color.RGBA{R: 255, A: 255}
	Blue  = color.RGBA{B: 255, A: 255}
	Green = color.RGBA{G: 255, A: 255}
)

// FontPath writes a TrueType font into a temp dir and returns its path.
func FontPath(t testing.TB) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "caption.ttf")
	if err := os.WriteFile(p, goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// Solid returns a w×h image filled with c.
func Solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// PNG encodes a solid image as a named upload.
func PNG(t testing.TB, name string, w, h int, c color.Color) upload.Mem {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, Solid(w, h, c)); err != nil {
		t.Fatal(err)
	}
	return upload.Mem{FileName: name, Data: buf.Bytes()}
}

// JPEG encodes a solid image.
func JPEG(t testing.TB, w, h int, c color.Color) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Solid(w, h, c), &jpeg.Options{Quality: 95}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// Directions are the short direction names used in FullSetNames.
var Directions = []string{"north", "ne", "e", "se", "s", "sw", "w", "nw"}

// FullSetNames lists one correctly named upload per slot in ordinal order.
func FullSetNames() []string {
	var out []string
	for _, dev := range []string{"launcher", "receiver"} {
		out = append(out, dev+".jpg")
		for _, d := range Directions {
			out = append(out, dev+" "+d+".jpg")
		}
	}
	return out
}

// FullSet returns 18 small PNG uploads named after FullSetNames. Full views
// are green, directional views red.
func FullSet(t testing.TB) []upload.File {
	t.Helper()
	var files []upload.File
	for i, n := range FullSetNames() {
		c := color.Color(Red)
		if i == 0 || i == 9 {
			c = Green
		}
		files = append(files, PNG(t, n, 24, 18, c))
	}
	return files
}

// TemplatePDF builds a PDF with pages of w×h points. imagePage (1-based)
// carries a full-page JPEG of colour c; 0 means no page has an image.
func TemplatePDF(t testing.TB, pages int, imagePage int, w, h float64, c color.Color) []byte {
	t.Helper()
	pdf := fpdf.New("P", "pt", "", "")
	size := fpdf.SizeType{Wd: w, Ht: h}
	for i := 1; i <= pages; i++ {
		pdf.AddPageFormat("P", size)
		if i != imagePage {
			continue
		}
		opts := fpdf.ImageOptions{ImageType: "JPG"}
		pdf.RegisterImageOptionsReader("bg", opts, bytes.NewReader(JPEG(t, int(w), int(h), c)))
		pdf.ImageOptions("bg", 0, 0, w, h, false, opts, 0, "")
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
