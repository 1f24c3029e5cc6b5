// Package analysis orchestrates the per-file detailed-analysis calls
// and the directory-role summary call, producing the structured
// intermediate artifacts the outline and drafting stages consume.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/scribelabs/scribed/internal/corpus"
	"github.com/scribelabs/scribed/internal/llm"
	"github.com/scribelabs/scribed/internal/prompt"
)

const instrumentationName = "github.com/scribelabs/scribed/internal/analysis"

// Progress receives human-readable status lines as the stage runs.
type Progress func(message string)

// Stage runs the analysis stage.
type Stage struct {
	llm    llm.Client
	reader *corpus.Reader
	model  string
	logger *zap.Logger

	tracer      trace.Tracer
	meter       metric.Meter
	fileCounter metric.Int64Counter
}

// NewStage creates the analysis stage. model names the completion model
// used for every call in this stage.
func NewStage(client llm.Client, reader *corpus.Reader, model string, logger *zap.Logger) (*Stage, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if reader == nil {
		return nil, fmt.Errorf("corpus reader is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Stage{
		llm:    client,
		reader: reader,
		model:  model,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}

	var err error
	s.fileCounter, err = s.meter.Int64Counter(
		"scribed.analysis.files_total",
		metric.WithDescription("Per-file analysis calls by outcome"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		s.logger.Warn("failed to create file counter", zap.Error(err))
	}

	return s, nil
}

// Roles issues the directory-role summary call. Its only input is the
// rendered directory tree.
func (s *Stage) Roles(ctx context.Context, tree string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.roles")
	defer span.End()

	p, err := prompt.FileRoles.Format(map[string]any{"directory_tree": tree})
	if err != nil {
		return "", fmt.Errorf("formatting roles prompt: %w", err)
	}
	out, err := s.llm.Complete(ctx, s.model, p)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("roles call: %w", err)
	}
	return out, nil
}

// Analyze runs the per-file analysis over every non-excluded file under
// root, strictly sequentially. A failed file is reported through
// progress and skipped; it never aborts the remaining files.
func (s *Stage) Analyze(ctx context.Context, root, language string, progress Progress) ([]FileAnalysis, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.analyze")
	defer span.End()

	if progress == nil {
		progress = func(string) {}
	}

	files, err := s.reader.ListFiles(root)
	if err != nil {
		return nil, fmt.Errorf("enumerating files: %w", err)
	}
	progress(fmt.Sprintf("files to analyze: %d", len(files)))
	span.SetAttributes(attribute.Int("file_count", len(files)))

	results := make([]FileAnalysis, 0, len(files))
	for i, rel := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		progress(fmt.Sprintf("analyzing file %d/%d -> %s", i+1, len(files), rel))

		fa, err := s.analyzeFile(ctx, root, rel, language)
		if err != nil {
			progress(fmt.Sprintf("file analysis failed: %s - %v", rel, err))
			s.logger.Warn("file analysis failed", zap.String("file", rel), zap.Error(err))
			s.countFile(ctx, "failed")
			continue
		}
		results = append(results, fa)
		s.countFile(ctx, "ok")
	}

	return results, nil
}

func (s *Stage) analyzeFile(ctx context.Context, root, rel, language string) (FileAnalysis, error) {
	content, err := s.reader.FileContent(root, rel)
	if err != nil {
		return FileAnalysis{}, err
	}

	p, err := prompt.FileAnalysis.Format(map[string]any{
		"file_path":    rel,
		"file_content": content,
		"language":     language,
	})
	if err != nil {
		return FileAnalysis{}, fmt.Errorf("formatting prompt: %w", err)
	}

	out, err := s.llm.Complete(ctx, s.model, p)
	if err != nil {
		return FileAnalysis{}, err
	}

	var parsed struct {
		Sections []Section `json:"sections"`
	}
	if err := json.Unmarshal([]byte(prompt.StripOuterFence(out)), &parsed); err != nil {
		return FileAnalysis{}, fmt.Errorf("unusable analysis output: %w", err)
	}
	if len(parsed.Sections) == 0 {
		return FileAnalysis{}, fmt.Errorf("unusable analysis output: no sections")
	}

	return FileAnalysis{Path: rel, Sections: parsed.Sections}, nil
}

func (s *Stage) countFile(ctx context.Context, outcome string) {
	if s.fileCounter != nil {
		s.fileCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}
