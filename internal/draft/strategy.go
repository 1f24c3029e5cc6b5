// Package draft turns a confirmed outline plus the corpus artifacts
// into the final Markdown article.
//
// Two interchangeable strategies exist: whole-document generates the
// article in one continuation-chained call, per-chapter iterates the
// outline's chapters and continuation-chains each one individually.
// Selection is a configuration choice, not a runtime fork.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/scribelabs/scribed/internal/continuation"
	"github.com/scribelabs/scribed/internal/llm"
	"github.com/scribelabs/scribed/internal/outline"
	"github.com/scribelabs/scribed/internal/prompt"
	"github.com/scribelabs/scribed/internal/session"
)

const instrumentationName = "github.com/scribelabs/scribed/internal/draft"

// ErrOutlineParse indicates the outline did not conform to the expected
// structure. Drafting aborts; no partial article is produced.
var ErrOutlineParse = errors.New("outline does not parse")

// Progress receives human-readable status lines as drafting runs.
type Progress func(message string)

// Result is a finished drafting run.
type Result struct {
	// Article is the assembled Markdown document.
	Article string

	// Truncated is true when a continuation budget ran out with the
	// sentinel still present; the article may be incomplete.
	Truncated bool

	// Rounds is the total number of continuation calls issued.
	Rounds int
}

// Strategy produces an article from an outline and the artifacts.
// prior, when non-empty, is a previously drafted (possibly human-edited)
// article body the new draft refines instead of starting from scratch.
type Strategy interface {
	Draft(ctx context.Context, rawOutline string, art outline.Artifacts, params session.Params, prior string, progress Progress) (Result, error)
}

// Config holds the knobs shared by both strategies.
type Config struct {
	// Model is the completion model used for drafting calls.
	Model string

	// MaxContinuationRounds bounds the assembler per document or per
	// chapter, depending on the strategy.
	MaxContinuationRounds int
}

// New returns the strategy named by kind: "whole_document" or
// "per_chapter".
func New(kind string, client llm.Client, cfg Config, logger *zap.Logger) (Strategy, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if cfg.MaxContinuationRounds < 1 {
		return nil, fmt.Errorf("max continuation rounds must be at least 1, got %d", cfg.MaxContinuationRounds)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	base := base{
		llm:    client,
		config: cfg,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
	}
	switch kind {
	case "whole_document":
		return &WholeDocument{base: base}, nil
	case "per_chapter":
		return &PerChapter{base: base}, nil
	default:
		return nil, fmt.Errorf("unknown drafting strategy %q", kind)
	}
}

type base struct {
	llm    llm.Client
	config Config
	logger *zap.Logger
	tracer trace.Tracer
}

// continueFrom builds the assembler's next function: every continuation
// call receives the entire accumulated text plus the full original
// prompt context.
func (b *base) continueFrom(originalPrompt string, progress Progress) continuation.NextFunc {
	return func(ctx context.Context, accumulated string) (string, error) {
		progress("generating continuation chunk...")
		p, err := prompt.Continuation.Format(map[string]any{
			"accumulated":     accumulated,
			"original_prompt": originalPrompt,
		})
		if err != nil {
			return "", fmt.Errorf("formatting continuation prompt: %w", err)
		}
		return b.llm.Complete(ctx, b.config.Model, p)
	}
}

// WholeDocument drafts the article in one continuation-chained call.
type WholeDocument struct {
	base
}

func (w *WholeDocument) Draft(ctx context.Context, rawOutline string, art outline.Artifacts, params session.Params, prior string, progress Progress) (Result, error) {
	ctx, span := w.tracer.Start(ctx, "draft.whole_document")
	defer span.End()

	if progress == nil {
		progress = func(string) {}
	}
	if _, err := outline.Parse(rawOutline); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrOutlineParse, err)
	}

	p, err := prompt.ArticleWhole.Format(map[string]any{
		"directory_tree":          art.DirectoryTree,
		"file_roles":              art.FileRoles,
		"detailed_code_analysis":  art.DetailedCodeAnalysis,
		"project_files_content":   art.ProjectFilesContent,
		"repo_url":                params.RepoURL,
		"target_audience":         params.TargetAudience,
		"tone":                    params.Tone,
		"additional_instructions": params.AdditionalInstructions,
		"language":                params.Language,
		"outline":                 rawOutline,
		"prior_article":           prior,
	})
	if err != nil {
		return Result{}, fmt.Errorf("formatting article prompt: %w", err)
	}

	progress("generating article...")
	initial, err := w.llm.Complete(ctx, w.config.Model, p)
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("article call: %w", err)
	}

	asm, err := continuation.Complete(ctx, initial, w.continueFrom(p, progress), w.config.MaxContinuationRounds)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}

	span.SetAttributes(attribute.Int("rounds", asm.Rounds), attribute.Bool("truncated", asm.Truncated))
	return Result{
		Article:   finalize(asm.Text),
		Truncated: asm.Truncated,
		Rounds:    asm.Rounds,
	}, nil
}

// PerChapter drafts chapter by chapter, feeding each call the article
// text accumulated so far to avoid duplication across chapters. Each
// chapter is individually completed before the next begins.
type PerChapter struct {
	base
}

func (p *PerChapter) Draft(ctx context.Context, rawOutline string, art outline.Artifacts, params session.Params, prior string, progress Progress) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "draft.per_chapter")
	defer span.End()

	if progress == nil {
		progress = func(string) {}
	}

	o, err := outline.Parse(rawOutline)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrOutlineParse, err)
	}

	var article string
	var rounds int
	truncated := false

	for i, ch := range o.Chapters {
		chapterJSON, err := json.Marshal(ch)
		if err != nil {
			return Result{}, fmt.Errorf("serializing chapter %s: %w", ch.ID, err)
		}

		progress(fmt.Sprintf("generating chapter %d/%d: %s", i+1, len(o.Chapters), ch.Title))

		cp, err := prompt.Chapter.Format(map[string]any{
			"chapter_json":            string(chapterJSON),
			"previous_text":           article,
			"prior_article":           prior,
			"directory_tree":          art.DirectoryTree,
			"file_roles":              art.FileRoles,
			"detailed_code_analysis":  art.DetailedCodeAnalysis,
			"project_files_content":   art.ProjectFilesContent,
			"repo_url":                params.RepoURL,
			"target_audience":         params.TargetAudience,
			"tone":                    params.Tone,
			"additional_instructions": params.AdditionalInstructions,
			"language":                params.Language,
		})
		if err != nil {
			return Result{}, fmt.Errorf("formatting chapter prompt: %w", err)
		}

		initial, err := p.llm.Complete(ctx, p.config.Model, cp)
		if err != nil {
			span.RecordError(err)
			return Result{}, fmt.Errorf("chapter %s call: %w", ch.ID, err)
		}

		asm, err := continuation.Complete(ctx, initial, p.continueFrom(cp, progress), p.config.MaxContinuationRounds)
		if err != nil {
			span.RecordError(err)
			return Result{}, err
		}
		rounds += asm.Rounds
		truncated = truncated || asm.Truncated

		if article != "" {
			article += "\n\n"
		}
		article += asm.Text
	}

	span.SetAttributes(attribute.Int("rounds", rounds), attribute.Bool("truncated", truncated))
	return Result{
		Article:   finalize(article),
		Truncated: truncated,
		Rounds:    rounds,
	}, nil
}

// finalize strips residual sentinel occurrences and a single outer
// whole-document fence.
func finalize(article string) string {
	return prompt.StripOuterFence(continuation.StripAll(article))
}
