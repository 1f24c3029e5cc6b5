// Package pipeline orchestrates the generation stages as background
// workers against the session store.
//
// Every generation-triggering operation (submission, outline
// regeneration, drafting, re-drafting) launches one fire-and-forget
// worker and returns immediately; callers observe progress through the
// store. Within a session, stages run in fixed order and a later stage
// refuses to start before its input artifact exists. A per-session
// in-progress flag prevents double-started workers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/scribelabs/scribed/internal/analysis"
	"github.com/scribelabs/scribed/internal/corpus"
	"github.com/scribelabs/scribed/internal/draft"
	"github.com/scribelabs/scribed/internal/outline"
	"github.com/scribelabs/scribed/internal/session"
)

const instrumentationName = "github.com/scribelabs/scribed/internal/pipeline"

// Terminal status lines. Pollers and the SSE stream watch for these.
const (
	StatusOutlineComplete  = "outline complete"
	StatusArticleComplete  = "article complete"
	StatusArticleTruncated = "article complete (possibly truncated)"
	statusFailurePrefix    = "failed: "
)

// IsTerminal reports whether a status line ends a worker run: a
// completed stage or a stage-level failure.
func IsTerminal(status string) bool {
	switch status {
	case StatusOutlineComplete, StatusArticleComplete, StatusArticleTruncated:
		return true
	}
	return strings.HasPrefix(status, statusFailurePrefix)
}

// IsFailure reports whether a status line records a stage-level failure.
func IsFailure(status string) bool {
	return strings.HasPrefix(status, statusFailurePrefix)
}

var (
	// ErrNotFound indicates an unknown session id.
	ErrNotFound = errors.New("session not found")

	// ErrBusy indicates a worker is already running for the session.
	ErrBusy = errors.New("generation already in progress for this session")

	// ErrNotReady indicates a required input artifact does not exist yet.
	ErrNotReady = errors.New("required artifact not yet available")
)

// Service runs the generation pipeline.
type Service struct {
	store    *session.Store
	reader   *corpus.Reader
	analysis *analysis.Stage
	outline  *outline.Stage
	strategy draft.Strategy
	logger   *zap.Logger

	tracer       trace.Tracer
	meter        metric.Meter
	stageCounter metric.Int64Counter
}

// NewService wires the stages together.
func NewService(store *session.Store, reader *corpus.Reader, an *analysis.Stage, ol *outline.Stage, strategy draft.Strategy, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if reader == nil {
		return nil, errors.New("corpus reader is required")
	}
	if an == nil || ol == nil || strategy == nil {
		return nil, errors.New("all pipeline stages are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		store:    store,
		reader:   reader,
		analysis: an,
		outline:  ol,
		strategy: strategy,
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
		meter:    otel.Meter(instrumentationName),
	}

	var err error
	s.stageCounter, err = s.meter.Int64Counter(
		"scribed.pipeline.stages_total",
		metric.WithDescription("Pipeline stage runs by stage and outcome"),
		metric.WithUnit("{stage}"),
	)
	if err != nil {
		s.logger.Warn("failed to create stage counter", zap.Error(err))
	}

	return s, nil
}

// Submit creates a new session for the project in workDir and launches
// the intake worker (acquire, tree, roles, per-file analysis, corpus,
// outline). Returns the new session id immediately.
//
// A new submission always mints a fresh id, so a stale worker from an
// earlier run can never write into the new session.
func (s *Service) Submit(workDir string, params session.Params) (string, error) {
	id := s.store.Create(params)
	if !s.store.TryBegin(id) {
		// Freshly minted id; only a concurrent reset could race here.
		return "", ErrBusy
	}
	s.store.AppendProgress(id, "step 1: acquiring project files")

	go s.runSubmit(id, workDir, params)
	return id, nil
}

func (s *Service) runSubmit(id, workDir string, params session.Params) {
	defer s.store.End(id)

	ctx, span := s.tracer.Start(context.Background(), "pipeline.submit")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", id))

	progress := func(msg string) { s.store.AppendProgress(id, msg) }

	src, err := corpus.Acquire(ctx, workDir, params.RepoURL, s.logger)
	if err != nil {
		s.fail(ctx, span, id, "acquire", err)
		return
	}
	switch src {
	case corpus.SourceUpload:
		progress("project files obtained from upload")
	case corpus.SourceClone:
		progress("repository cloned successfully")
	}

	progress("step 2: rendering directory tree")
	tree, err := s.reader.Tree(workDir)
	if err != nil {
		s.fail(ctx, span, id, "tree", err)
		return
	}
	s.store.Put(id, session.ArtifactTree, tree)

	progress("step 3: summarizing file roles")
	roles, err := s.analysis.Roles(ctx, tree)
	if err != nil {
		s.fail(ctx, span, id, "roles", err)
		return
	}
	s.store.Put(id, session.ArtifactRoles, roles)

	progress("step 4: analyzing files")
	files, err := s.analysis.Analyze(ctx, workDir, params.Language, progress)
	if err != nil {
		s.fail(ctx, span, id, "analysis", err)
		return
	}
	analysisJSON, err := analysis.MarshalFiles(files)
	if err != nil {
		s.fail(ctx, span, id, "analysis", err)
		return
	}
	s.store.Put(id, session.ArtifactAnalysis, analysisJSON)
	s.countStage(ctx, "analysis", "ok")

	filesContent, err := s.reader.Build(workDir)
	if err != nil {
		s.fail(ctx, span, id, "corpus", err)
		return
	}
	s.store.Put(id, session.ArtifactFiles, filesContent)
	progress("analysis complete")

	progress("step 5: generating outline")
	s.buildOutline(ctx, span, id, params, files)
}

// buildOutline runs the outline call against the stored artifacts and
// records the result. Shared by intake and explicit regeneration.
func (s *Service) buildOutline(ctx context.Context, span trace.Span, id string, params session.Params, files []analysis.FileAnalysis) {
	art, ok := s.artifacts(id)
	if !ok {
		s.fail(ctx, span, id, "outline", ErrNotReady)
		return
	}

	raw, err := s.outline.Build(ctx, art, params)
	if err != nil {
		s.fail(ctx, span, id, "outline", err)
		return
	}
	s.store.Put(id, session.ArtifactOutline, raw)

	// Dangling code references degrade single items, not the run.
	if o, err := outline.Parse(raw); err != nil {
		s.store.AppendProgress(id, "warning: generated outline did not parse; edit it before drafting")
	} else if files != nil {
		res := analysis.Result{Files: files}
		if dangling := o.Validate(res.SectionIDs()); len(dangling) > 0 {
			s.store.AppendProgress(id, "warning: outline references unknown analysis ids: "+strings.Join(dangling, ", "))
		}
	}

	s.countStage(ctx, "outline", "ok")
	s.store.AppendProgress(id, StatusOutlineComplete)
}

// RegenerateOutline forces the outline stage to re-run, replacing any
// edited outline. Requires the analysis artifacts to exist.
func (s *Service) RegenerateOutline(id string) error {
	if !s.store.Exists(id) {
		return ErrNotFound
	}
	if _, ok := s.store.Get(id, session.ArtifactAnalysis); !ok {
		return fmt.Errorf("%w: analysis", ErrNotReady)
	}
	if !s.store.TryBegin(id) {
		return ErrBusy
	}

	go func() {
		defer s.store.End(id)
		ctx, span := s.tracer.Start(context.Background(), "pipeline.regenerate_outline")
		defer span.End()
		span.SetAttributes(attribute.String("session_id", id))

		params, _ := s.store.Params(id)
		s.store.AppendProgress(id, "regenerating outline")

		var files []analysis.FileAnalysis
		if stored, ok := s.store.Get(id, session.ArtifactAnalysis); ok {
			files, _ = analysis.UnmarshalFiles(stored)
		}
		s.buildOutline(ctx, span, id, params, files)
	}()
	return nil
}

// Draft launches the drafting worker over the session's current
// outline. Requires an outline to exist.
func (s *Service) Draft(id string) error {
	return s.startDraft(id, "drafting article", false)
}

// Redraft re-runs drafting after a human edited the outline or the
// article. The stored article seeds the new run as a base to refine,
// then is overwritten by the result.
func (s *Service) Redraft(id string) error {
	return s.startDraft(id, "re-drafting article", true)
}

func (s *Service) startDraft(id, announce string, seedArticle bool) error {
	if !s.store.Exists(id) {
		return ErrNotFound
	}
	if _, ok := s.store.Get(id, session.ArtifactOutline); !ok {
		return fmt.Errorf("%w: outline", ErrNotReady)
	}
	if !s.store.TryBegin(id) {
		return ErrBusy
	}

	go s.runDraft(id, announce, seedArticle)
	return nil
}

// runDraft is the drafting worker body. The outline and prior article
// are read here, not at trigger time, so an edit landing between the
// trigger and the worker run is honored.
func (s *Service) runDraft(id, announce string, seedArticle bool) {
	defer s.store.End(id)
	ctx, span := s.tracer.Start(context.Background(), "pipeline.draft")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", id))

	s.store.AppendProgress(id, announce)

	rawOutline, ok := s.store.Get(id, session.ArtifactOutline)
	if !ok {
		// Session reset between trigger and run.
		s.fail(ctx, span, id, "draft", ErrNotReady)
		return
	}
	art, ok := s.artifacts(id)
	if !ok {
		s.fail(ctx, span, id, "draft", ErrNotReady)
		return
	}
	params, _ := s.store.Params(id)

	var prior string
	if seedArticle {
		prior, _ = s.store.Get(id, session.ArtifactArticle)
	}

	progress := func(msg string) { s.store.AppendProgress(id, msg) }

	res, err := s.strategy.Draft(ctx, rawOutline, art, params, prior, progress)
	if err != nil {
		s.fail(ctx, span, id, "draft", err)
		return
	}

	s.store.Put(id, session.ArtifactArticle, res.Article)
	s.store.SetTruncated(id, res.Truncated)
	s.countStage(ctx, "draft", "ok")

	if res.Truncated {
		s.store.AppendProgress(id, StatusArticleTruncated)
	} else {
		s.store.AppendProgress(id, StatusArticleComplete)
	}
}

// artifacts loads the prompt context bundle from the store.
func (s *Service) artifacts(id string) (outline.Artifacts, bool) {
	tree, ok1 := s.store.Get(id, session.ArtifactTree)
	roles, ok2 := s.store.Get(id, session.ArtifactRoles)
	anal, ok3 := s.store.Get(id, session.ArtifactAnalysis)
	files, ok4 := s.store.Get(id, session.ArtifactFiles)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return outline.Artifacts{}, false
	}
	return outline.Artifacts{
		DirectoryTree:        tree,
		FileRoles:            roles,
		DetailedCodeAnalysis: anal,
		ProjectFilesContent:  files,
	}, true
}

// fail records a stage-level failure. The session stays inspectable but
// incomplete; no failure here touches another session.
func (s *Service) fail(ctx context.Context, span trace.Span, id, stage string, err error) {
	span.RecordError(err)
	s.countStage(ctx, stage, "failed")
	s.logger.Error("pipeline stage failed",
		zap.String("session_id", id),
		zap.String("stage", stage),
		zap.Error(err),
	)
	s.store.AppendProgress(id, statusFailurePrefix+stage+": "+err.Error())
}

func (s *Service) countStage(ctx context.Context, stage, outcome string) {
	if s.stageCounter != nil {
		s.stageCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("outcome", outcome),
		))
	}
}
