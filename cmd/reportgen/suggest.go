package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/inspection-report/internal/ai"
	"github.com/thywilljoshua/inspection-report/internal/upload"
)

type suggestReport struct {
	Missing     []string        `json:"missing"`
	Suggestions []ai.Suggestion `json:"suggestions"`
}

func suggestCmd(g *globalOptions) *cobra.Command {
	var provider, model string
	cmd := &cobra.Command{
		Use:   "suggest <image|dir>...",
		Short: "Explain unmatched photos and propose names for them",
		Long: "Runs the matcher without rendering. Each photo that fills no slot is listed with the reason;\n" +
			"with --ai gemini the photo is classified and a canonical file name is proposed for an open slot.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if provider != "" {
				cfg.AI.Provider = provider
			}
			if model != "" {
				cfg.AI.Model = model
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			files, err := upload.FromPaths(args)
			if err != nil {
				return err
			}
			m, err := newMatcher(cfg, log)
			if err != nil {
				return err
			}

			var classifier ai.Classifier = ai.Noop{}
			if strings.EqualFold(cfg.AI.Provider, "gemini") {
				gem, err := ai.NewGemini(cmd.Context(), os.Getenv(cfg.AI.APIKeyEnv), cfg.AI.Model)
				if err != nil {
					return fmt.Errorf("gemini (key from $%s): %w", cfg.AI.APIKeyEnv, err)
				}
				classifier = gem
			}

			sugg, err := ai.Suggest(cmd.Context(), m, classifier, files, log)
			if err != nil {
				return err
			}
			rep := suggestReport{Missing: []string{}, Suggestions: sugg}
			for _, s := range m.Analyze(files).Missing {
				rep.Missing = append(rep.Missing, s.Title)
			}
			b, _ := json.MarshalIndent(rep, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "ai", "", "AI provider: off|gemini (default: ai.provider)")
	cmd.Flags().StringVar(&model, "model", "", "Gemini model (default: ai.model)")
	return cmd
}
