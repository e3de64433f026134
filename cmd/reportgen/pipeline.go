package main

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/thywilljoshua/inspection-report/internal/config"
	"github.com/thywilljoshua/inspection-report/internal/logging"
	"github.com/thywilljoshua/inspection-report/internal/match"
	"github.com/thywilljoshua/inspection-report/internal/render"
	"github.com/thywilljoshua/inspection-report/internal/report"
	"github.com/thywilljoshua/inspection-report/internal/upload"
)

type globalOptions struct {
	configPath string
	logLevel   string
}

// load reads the config and builds the logger every sub-command shares.
func (g *globalOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newMatcher(cfg *config.Config, log *zap.Logger) (*match.Matcher, error) {
	mode, err := cfg.MatchMode()
	if err != nil {
		return nil, err
	}
	return match.New(nil, mode, log), nil
}

// newAssembler loads the caption font and wires matcher, renderer and
// assembler. A missing font fails here, before any input is read.
func newAssembler(cfg *config.Config, log *zap.Logger) (*report.Assembler, error) {
	m, err := newMatcher(cfg, log)
	if err != nil {
		return nil, err
	}
	f, err := render.LoadFont(cfg.Render.FontPaths, cfg.Render.FontSize)
	if err != nil {
		return nil, err
	}
	r, err := render.New(f, cfg.RenderOptions(), log)
	if err != nil {
		return nil, err
	}
	return report.New(m, r, cfg.Report.Workers, log), nil
}

// checkShape applies the 18-image rule. Lenient runs accept extra photos;
// the matcher decides which of them are used.
func checkShape(mode match.Mode, jobName string, files []upload.File) error {
	err := upload.ValidateShape(jobName, files)
	var se *upload.InputShapeError
	if mode == match.Lenient && errors.As(err, &se) && !se.JobNameMissing && se.Count > upload.RequiredImages {
		return nil
	}
	return err
}

func loadTemplate(path string, dpi float64) (*render.Template, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}
	return render.LoadTemplate(data, dpi)
}
