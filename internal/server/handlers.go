package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thywilljoshua/inspection-report/internal/render"
	"github.com/thywilljoshua/inspection-report/internal/report"
	"github.com/thywilljoshua/inspection-report/internal/slots"
	"github.com/thywilljoshua/inspection-report/internal/upload"
)

// multipart memory budget; larger parts spill to temp files
const formMemory = 32 << 20

type slotView struct {
	Ordinal       int      `json:"ordinal"`
	Device        string   `json:"device"`
	Direction     string   `json:"direction"`
	Title         string   `json:"title"`
	CanonicalName string   `json:"canonical_name"`
	Aliases       []string `json:"aliases"`
}

// GET /api/slots
func (s *Server) listSlots(c *gin.Context) {
	reg := s.asm.Registry()
	out := make([]slotView, 0, reg.Len())
	for _, sl := range reg.Slots() {
		out = append(out, slotView{
			Ordinal:       sl.Ordinal,
			Device:        sl.Device.String(),
			Direction:     sl.Direction.String(),
			Title:         sl.Title,
			CanonicalName: slots.CanonicalName(sl, ""),
			Aliases:       sl.Aliases,
		})
	}
	c.JSON(http.StatusOK, gin.H{"slots": out})
}

// POST /api/reports
func (s *Server) createReport(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	if err := c.Request.ParseMultipartForm(formMemory); err != nil {
		s.fail(c, &formError{err: err})
		return
	}
	form := c.Request.MultipartForm
	defer func() { _ = form.RemoveAll() }()

	var jobName string
	if v := form.Value["job_name"]; len(v) > 0 {
		jobName = strings.TrimSpace(v[0])
	}
	var files []upload.File
	for _, fh := range form.File["images"] {
		files = append(files, upload.Multipart{Header: fh})
	}
	if err := upload.ValidateShape(jobName, files); err != nil {
		s.fail(c, err)
		return
	}

	var tpl *render.Template
	if hs := form.File["template"]; len(hs) > 0 {
		data, err := upload.Multipart{Header: hs[0]}.Bytes()
		if err != nil {
			s.fail(c, fmt.Errorf("reading template: %w", err))
			return
		}
		if tpl, err = render.LoadTemplate(data, s.templateDPI); err != nil {
			s.fail(c, err)
			return
		}
	}

	doc, err := s.asm.Generate(c.Request.Context(), jobName, files, tpl)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.log.Info("report generated",
		zap.String("request_id", c.GetString("request_id")),
		zap.String("job", jobName),
		zap.Int("bytes", len(doc.PDF)))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.outputName))
	c.Data(http.StatusOK, report.ContentType, doc.PDF)
}

func (s *Server) fail(c *gin.Context, err error) {
	status, body := classify(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}
