// Package config loads reportgen settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/thywilljoshua/inspection-report/internal/match"
	"github.com/thywilljoshua/inspection-report/internal/render"
)

// DefaultPath is read when no --config flag is given and the file exists.
const DefaultPath = "reportgen.yaml"

// Config holds all settings.
type Config struct {
	Match   MatchConfig   `yaml:"match"`
	Render  RenderConfig  `yaml:"render"`
	Report  ReportConfig  `yaml:"report"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	AI      AIConfig      `yaml:"ai"`
}

// MatchConfig selects the leftover policy: strict or lenient.
type MatchConfig struct {
	Mode string `yaml:"mode"`
}

// RenderConfig is page geometry and the caption font.
type RenderConfig struct {
	FontPaths    []string `yaml:"font_paths"`
	FontSize     float64  `yaml:"font_size"`
	CanvasWidth  int      `yaml:"canvas_width"`
	CanvasHeight int      `yaml:"canvas_height"`
	CanvasDPI    float64  `yaml:"canvas_dpi"`
	FullPageDPI  float64  `yaml:"full_page_dpi"`
	TargetWidth  int      `yaml:"target_width"`
	TargetHeight int      `yaml:"target_height"`
	JobLineY     float64  `yaml:"job_line_y"`
	TitleLineY   float64  `yaml:"title_line_y"`
	ImageTopY    float64  `yaml:"image_top_y"`
	JPEGQuality  int      `yaml:"jpeg_quality"`
}

// ReportConfig controls assembly.
type ReportConfig struct {
	// Workers bounds concurrent page renders; 0 means one per CPU.
	Workers    int    `yaml:"workers"`
	OutputName string `yaml:"output_name"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
	Debug       bool   `yaml:"debug"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// AIConfig configures the optional photo classifier used by `suggest`.
type AIConfig struct {
	Provider  string `yaml:"provider"` // off, gemini
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// Default returns the built-in settings.
func Default() *Config {
	o := render.DefaultOptions()
	return &Config{
		Match: MatchConfig{Mode: string(match.Strict)},
		Render: RenderConfig{
			FontPaths:    append([]string(nil), render.DefaultFontPaths...),
			FontSize:     50,
			CanvasWidth:  o.CanvasWidth,
			CanvasHeight: o.CanvasHeight,
			CanvasDPI:    o.CanvasDPI,
			FullPageDPI:  o.FullPageDPI,
			TargetWidth:  o.TargetWidth,
			TargetHeight: o.TargetHeight,
			JobLineY:     o.JobLineY,
			TitleLineY:   o.TitleLineY,
			ImageTopY:    o.ImageTopY,
			JPEGQuality:  o.JPEGQuality,
		},
		Report: ReportConfig{OutputName: "Final_Report.pdf"},
		Server: ServerConfig{Addr: ":8080", MaxUploadMB: 64},
		Logging: LoggingConfig{Level: "info"},
		AI: AIConfig{
			Provider:  "off",
			Model:     "gemini-2.5-flash",
			APIKeyEnv: "GOOGLE_API_KEY",
		},
	}
}

// Load reads path over the defaults. An empty path tries DefaultPath and
// falls back to the defaults when it does not exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if _, err := c.MatchMode(); err != nil {
		return err
	}
	if c.Render.FontSize <= 0 {
		return fmt.Errorf("render.font_size must be positive")
	}
	if err := c.RenderOptions().Validate(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if c.Report.Workers < 0 {
		return fmt.Errorf("report.workers must not be negative")
	}
	if strings.TrimSpace(c.Report.OutputName) == "" {
		return fmt.Errorf("report.output_name is required")
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}
	switch strings.ToLower(c.AI.Provider) {
	case "", "off", "gemini":
	default:
		return fmt.Errorf("ai.provider must be off or gemini, got %q", c.AI.Provider)
	}
	return nil
}

// MatchMode parses match.mode.
func (c *Config) MatchMode() (match.Mode, error) {
	return match.ParseMode(c.Match.Mode)
}

// RenderOptions converts the render section.
func (c *Config) RenderOptions() render.Options {
	r := c.Render
	return render.Options{
		CanvasWidth:  r.CanvasWidth,
		CanvasHeight: r.CanvasHeight,
		CanvasDPI:    r.CanvasDPI,
		FullPageDPI:  r.FullPageDPI,
		TargetWidth:  r.TargetWidth,
		TargetHeight: r.TargetHeight,
		JobLineY:     r.JobLineY,
		TitleLineY:   r.TitleLineY,
		ImageTopY:    r.ImageTopY,
		JPEGQuality:  r.JPEGQuality,
	}
}

// MaxUploadBytes is server.max_upload_mb in bytes.
func (c *Config) MaxUploadBytes() int64 { return c.Server.MaxUploadMB << 20 }
