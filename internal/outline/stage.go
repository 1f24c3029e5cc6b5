package outline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/scribelabs/scribed/internal/llm"
	"github.com/scribelabs/scribed/internal/prompt"
	"github.com/scribelabs/scribed/internal/session"
)

const instrumentationName = "github.com/scribelabs/scribed/internal/outline"

// Stage generates outlines. Building and regenerating are the same
// operation under different triggers.
type Stage struct {
	llm    llm.Client
	model  string
	logger *zap.Logger
	tracer trace.Tracer
}

// NewStage creates the outline stage. model names the completion model
// used for the single outline call.
func NewStage(client llm.Client, model string, logger *zap.Logger) (*Stage, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stage{
		llm:    client,
		model:  model,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
	}, nil
}

// Build issues the outline call and returns the raw outline text with a
// single outer fence already stripped. The text is returned even when
// it later fails to parse; parse failure is fatal for drafting only,
// and the unusable text stays inspectable.
func (s *Stage) Build(ctx context.Context, art Artifacts, params session.Params) (string, error) {
	ctx, span := s.tracer.Start(ctx, "outline.build")
	defer span.End()

	p, err := prompt.Outline.Format(map[string]any{
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
		return "", fmt.Errorf("formatting outline prompt: %w", err)
	}

	out, err := s.llm.Complete(ctx, s.model, p)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("outline call: %w", err)
	}

	return prompt.StripOuterFence(out), nil
}
