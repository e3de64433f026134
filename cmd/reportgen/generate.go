package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/thywilljoshua/inspection-report/internal/match"
	"github.com/thywilljoshua/inspection-report/internal/upload"
)

type pageSummary struct {
	Ordinal int    `json:"ordinal"`
	Slot    string `json:"slot"`
	File    string `json:"file"`
}

type generateSummary struct {
	Output string        `json:"output"`
	Job    string        `json:"job"`
	Bytes  int           `json:"bytes"`
	Pages  []pageSummary `json:"pages"`
}

func generateCmd(g *globalOptions) *cobra.Command {
	var (
		job      string
		tplPath  string
		out      string
		lenient  bool
		workers  int
		fonts    []string
		fontSize float64
	)
	cmd := &cobra.Command{
		Use:   "generate <image|dir>...",
		Short: "Match photos to slots and write the report PDF",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			flags := cmd.Flags()
			if lenient {
				cfg.Match.Mode = string(match.Lenient)
			}
			if flags.Changed("workers") {
				cfg.Report.Workers = workers
			}
			if flags.Changed("font") {
				cfg.Render.FontPaths = fonts
			}
			if flags.Changed("font-size") {
				cfg.Render.FontSize = fontSize
			}
			if out == "" {
				out = cfg.Report.OutputName
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			files, err := upload.FromPaths(args)
			if err != nil {
				return err
			}
			mode, _ := cfg.MatchMode()
			if err := checkShape(mode, job, files); err != nil {
				return err
			}
			asm, err := newAssembler(cfg, log)
			if err != nil {
				return err
			}
			tpl, err := loadTemplate(tplPath, cfg.Render.CanvasDPI)
			if err != nil {
				return err
			}

			doc, err := asm.Generate(cmd.Context(), job, files, tpl)
			if err != nil {
				return err
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if err := os.WriteFile(out, doc.PDF, 0o644); err != nil {
				return err
			}
			log.Info("wrote report", zap.String("path", out))

			sum := generateSummary{Output: out, Job: job, Bytes: len(doc.PDF)}
			for _, p := range doc.Pages {
				sum.Pages = append(sum.Pages, pageSummary{Ordinal: p.Ordinal, Slot: p.Slot.String(), File: p.File})
			}
			b, _ := json.MarshalIndent(sum, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	cmd.Flags().StringVarP(&job, "job", "j", "", "job name printed on every directional page (required)")
	cmd.Flags().StringVarP(&tplPath, "template", "t", "", "background PDF (page 2 used when present) or image")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: report.output_name)")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "ignore photos that fill no slot instead of failing")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent page renders (0: one per CPU)")
	cmd.Flags().StringSliceVar(&fonts, "font", nil, "caption font file; repeat to give fallbacks")
	cmd.Flags().Float64Var(&fontSize, "font-size", 50, "caption font size in pixels")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}
