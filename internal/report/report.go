// Package report assembles the 18-page inspection report: it matches uploads
// to slots, renders every page and concatenates them in slot order.
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/thywilljoshua/inspection-report/internal/match"
	"github.com/thywilljoshua/inspection-report/internal/render"
	"github.com/thywilljoshua/inspection-report/internal/slots"
	"github.com/thywilljoshua/inspection-report/internal/upload"
)

const (
	// OutputName is the download name of a generated report.
	OutputName = "Final_Report.pdf"
	// ContentType is the media type of a generated report.
	ContentType = "application/pdf"
)

// PageRenderer draws single pages. *render.Renderer is the production
// implementation.
type PageRenderer interface {
	RenderFullPage(f upload.File) (*render.Page, error)
	RenderDirectionalPage(tpl *render.Template, jobName, title string, f upload.File) (*render.Page, error)
}

// PageInfo describes one page of a generated document.
type PageInfo struct {
	Ordinal int
	Slot    slots.Slot
	File    string
	Caption []string
}

// Document is a finished report.
type Document struct {
	PDF   []byte
	Pages []PageInfo
}

// Assembler runs the whole pipeline for one request at a time; it keeps no
// state between calls and may be shared.
type Assembler struct {
	reg      *slots.Registry
	matcher  *match.Matcher
	renderer PageRenderer
	workers  int
	log      *zap.Logger
}

// New returns an Assembler. workers bounds concurrent page renders; values
// below 1 mean one per CPU.
func New(m *match.Matcher, r PageRenderer, workers int, log *zap.Logger) *Assembler {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Assembler{reg: m.Registry(), matcher: m, renderer: r, workers: workers, log: log}
}

// Registry returns the slot table pages are laid out by.
func (a *Assembler) Registry() *slots.Registry { return a.reg }

// Generate builds the report or returns the first error. Matching errors are
// returned as is; nothing is rendered unless every slot has a photo.
func (a *Assembler) Generate(ctx context.Context, jobName string, files []upload.File, tpl *render.Template) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	assignment, err := a.matcher.MatchAll(files)
	if err != nil {
		return nil, err
	}

	all := a.reg.Slots()
	pages := make([]*render.Page, len(all))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, s := range all {
		f := assignment[s.Key()]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var (
				p   *render.Page
				err error
			)
			if s.IsFull() {
				p, err = a.renderer.RenderFullPage(f)
			} else {
				p, err = a.renderer.RenderDirectionalPage(tpl, jobName, s.Title, f)
			}
			if err != nil {
				return fmt.Errorf("page %d (%s): %w", s.Ordinal, s, err)
			}
			pages[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pdf, err := concat(pages)
	if err != nil {
		return nil, err
	}

	doc := &Document{PDF: pdf, Pages: make([]PageInfo, len(all))}
	for i, s := range all {
		doc.Pages[i] = PageInfo{
			Ordinal: s.Ordinal,
			Slot:    s,
			File:    assignment[s.Key()].Name(),
			Caption: pages[i].Caption,
		}
	}
	a.log.Info("report generated",
		zap.String("job", jobName),
		zap.Int("pages", len(doc.Pages)),
		zap.Int("bytes", len(pdf)),
		zap.Bool("template", tpl != nil),
		zap.Duration("took", time.Since(start)))
	return doc, nil
}

// concat merges single-page PDFs in slice order and checks the page count.
func concat(pages []*render.Page) ([]byte, error) {
	rs := make([]io.ReadSeeker, len(pages))
	for i, p := range pages {
		rs[i] = bytes.NewReader(p.PDF)
	}
	var buf bytes.Buffer
	if err := api.MergeRaw(rs, &buf, false, render.PDFConfig()); err != nil {
		return nil, fmt.Errorf("merging pages: %w", err)
	}
	n, err := api.PageCount(bytes.NewReader(buf.Bytes()), render.PDFConfig())
	if err != nil {
		return nil, fmt.Errorf("reading merged report: %w", err)
	}
	if n != len(pages) {
		return nil, fmt.Errorf("merged report has %d pages, want %d", n, len(pages))
	}
	return buf.Bytes(), nil
}
