package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scribelabs/scribed/internal/pipeline"
	"github.com/scribelabs/scribed/internal/session"
)

var (
	genOutput       string
	genRepoURL      string
	genAudience     string
	genTone         string
	genInstructions string
	genLanguage     string
)

var generateCmd = &cobra.Command{
	Use:   "generate [path]",
	Short: "Run the full pipeline once and write the article to a file",
	Long: `Generate runs intake, analysis, outline, and drafting in one shot,
auto-approving the generated outline. Point it at a local project
directory, or pass --repo to clone a remote repository instead.

Examples:

  # Local project
  scribed generate ./my-project -o article.md

  # Remote repository
  scribed generate --repo https://github.com/user/project -o article.md`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genOutput, "out", "o", "article.md", "output file for the article")
	generateCmd.Flags().StringVar(&genRepoURL, "repo", "", "remote repository URL to clone")
	generateCmd.Flags().StringVar(&genAudience, "audience", "", "target audience (default from config)")
	generateCmd.Flags().StringVar(&genTone, "tone", "", "article tone (default from config)")
	generateCmd.Flags().StringVar(&genInstructions, "instructions", "", "extra free-text instructions")
	generateCmd.Flags().StringVar(&genLanguage, "language", "", "explanation language code (default from config)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	var workDir string
	if len(args) > 0 {
		workDir, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}
	} else {
		if genRepoURL == "" {
			return fmt.Errorf("provide a project path or --repo")
		}
		workDir, err = os.MkdirTemp("", "scribed-*")
		if err != nil {
			return fmt.Errorf("creating work directory: %w", err)
		}
		defer os.RemoveAll(workDir)
	}

	store, pl, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	params := session.Params{
		RepoURL:                genRepoURL,
		TargetAudience:         orDefault(genAudience, cfg.Pipeline.TargetAudience),
		Tone:                   orDefault(genTone, cfg.Pipeline.Tone),
		AdditionalInstructions: genInstructions,
		Language:               orDefault(genLanguage, cfg.Pipeline.Language),
	}

	id, err := pl.Submit(workDir, params)
	if err != nil {
		return fmt.Errorf("submitting project: %w", err)
	}

	if err := waitForTerminal(store, id, 0); err != nil {
		return err
	}
	if _, ok := store.Get(id, session.ArtifactOutline); !ok {
		return fmt.Errorf("intake produced no outline")
	}

	history, _, _ := store.Progress(id)
	if err := pl.Draft(id); err != nil {
		return fmt.Errorf("starting draft: %w", err)
	}
	if err := waitForTerminal(store, id, len(history)); err != nil {
		return err
	}

	article, ok := store.Get(id, session.ArtifactArticle)
	if !ok {
		return fmt.Errorf("drafting produced no article")
	}
	if store.Truncated(id) {
		logger.Warn("article may be truncated: continuation rounds exhausted")
	}

	if err := os.WriteFile(genOutput, []byte(article), 0o644); err != nil {
		return fmt.Errorf("writing article: %w", err)
	}
	logger.Info("article written", zap.String("file", genOutput), zap.Int("bytes", len(article)))
	return nil
}

// waitForTerminal polls the session status until a worker run ends.
// Status lines are echoed to stderr as they appear. Only statuses
// appended after the first `after` history entries count as terminal,
// so a fresh worker is never mistaken for an earlier finished one.
func waitForTerminal(store *session.Store, id string, after int) error {
	seen := after
	for {
		history, status, ok := store.Progress(id)
		if !ok {
			return fmt.Errorf("session disappeared")
		}
		for ; seen < len(history); seen++ {
			fmt.Fprintln(os.Stderr, history[seen].Message)
		}
		if len(history) > after && pipeline.IsTerminal(status) {
			if pipeline.IsFailure(status) {
				return fmt.Errorf("generation failed: %s", status)
			}
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
