package main

import (
	"fmt"

	"github.com/germanamz/companion/pkg/providers/gemini"
	"github.com/spf13/cobra"
)

func newModelsCmd(s streams, f *rootFlags) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models available to your API key",
		Long: `List the Gemini models visible to the configured API key. By default only
models that support generateContent (usable by the chat loop) are shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *f)
			if err != nil {
				return err
			}

			key, err := credential(s, cfg)
			if err != nil {
				return err
			}

			a, err := gemini.New(cfg.BaseURL, key, cfg.Model)
			if err != nil {
				return err
			}

			models, err := a.ListModels(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			shown := 0
			for _, m := range models {
				if !all && !m.Supports("generateContent") {
					continue
				}
				marker := " "
				if m.ID() == a.Name {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-40s %s\n", marker, m.ID(), m.DisplayName)
				shown++
			}

			if shown == 0 {
				fmt.Fprintln(out, "no models found")
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include models that cannot generate content")

	return cmd
}
