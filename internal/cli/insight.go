package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mostlycached/grain/internal/config"
	"github.com/mostlycached/grain/internal/insight"
	"github.com/mostlycached/grain/internal/render"
	"github.com/mostlycached/grain/internal/store"
)

var insightUser string
var weeklyLimit int

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Render a next-activity suggestion for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInsight(func(ctx context.Context, db *store.DB, a *insight.Analyzer) (*insight.Finding, error) {
			return a.NextSuggestion(ctx, insightUser)
		})
	},
}

var weeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Render the weekly pattern finding for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInsight(func(ctx context.Context, db *store.DB, a *insight.Analyzer) (*insight.Finding, error) {
			sessions, err := db.FetchSessions(ctx, insightUser, weeklyLimit)
			if err != nil {
				return nil, fmt.Errorf("fetch sessions: %w", err)
			}
			return a.Weekly(ctx, sessions)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{suggestCmd, weeklyCmd} {
		c.Flags().StringVarP(&insightUser, "user", "u", "", "user id (required)")
		c.MarkFlagRequired("user")
	}
	weeklyCmd.Flags().IntVarP(&weeklyLimit, "limit", "n", 50, "max sessions to analyze")
}

func runInsight(build func(context.Context, *store.DB, *insight.Analyzer) (*insight.Finding, error)) error {
	cfg := config.Default()
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.Renderer.Provider = "anthropic"
		cfg.Renderer.AnthropicKey = key
	}

	renderer, err := render.NewClient(cfg.Renderer)
	if err != nil {
		return fmt.Errorf("renderer: %w", err)
	}

	db, err := openDefaultDB()
	if err != nil {
		return err
	}
	defer db.Close()

	analyzer := insight.New(db, renderer, nil, 0)
	finding, err := build(context.Background(), db, analyzer)
	if err != nil {
		return err
	}

	fmt.Println(finding.Narrative)
	if len(finding.Tags) > 0 {
		fmt.Printf("\ntags: %v\n", finding.Tags)
	}
	return nil
}
