package render

import (
	"bytes"
	"image"
	"image/jpeg"
	"time"

	"codeberg.org/go-pdf/fpdf"
)

// Producer is written into every generated PDF.
const Producer = "inspection-report"

// fixedDate keeps output bytes independent of the wall clock.
var fixedDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// encodePDF wraps img as the only page of a PDF sized to the image at dpi.
func encodePDF(img image.Image, dpi float64, quality int, title string) ([]byte, error) {
	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	b := img.Bounds()
	w := float64(b.Dx()) * 72 / dpi
	h := float64(b.Dy()) * 72 / dpi

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: w, Ht: h},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(fixedDate)
	pdf.SetModificationDate(fixedDate)
	pdf.SetCatalogSort(true)
	pdf.SetProducer(Producer, true)
	pdf.SetTitle(title, true)
	pdf.AddPage()

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader("page", opts, &jpg)
	pdf.ImageOptions("page", 0, 0, w, h, false, opts, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
