// Package session provides the process-wide store for generation
// sessions: progress history, current status, and the named artifacts
// each pipeline stage produces.
//
// Entries are in-memory only and live until explicit reset or process
// end. A session is reachable only through its opaque id; ids are
// minted here and never reused, so a worker holding a stale id after a
// reset writes into nothing.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Artifact names a stage-produced output stored against a session.
type Artifact string

const (
	ArtifactTree     Artifact = "tree"
	ArtifactRoles    Artifact = "roles"
	ArtifactAnalysis Artifact = "analysis"
	ArtifactFiles    Artifact = "files"
	ArtifactOutline  Artifact = "outline"
	ArtifactArticle  Artifact = "article"
)

// Params are the style parameters carried through a session.
type Params struct {
	RepoURL                string `json:"repo_url"`
	TargetAudience         string `json:"target_audience"`
	Tone                   string `json:"tone"`
	AdditionalInstructions string `json:"additional_instructions"`
	Language               string `json:"language"`
}

// ProgressEntry is one timestamped status line.
type ProgressEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// record holds everything owned by one session. Named fields instead of
// concatenated keys, so a stage cannot write under a misspelled key.
type record struct {
	params    Params
	history   []ProgressEntry
	status    string
	artifacts map[Artifact]string
	truncated bool
	busy      bool
}

// Store is the process-wide session store. All methods are safe for
// concurrent use; one method call is the atomic unit.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*record
	logger   *zap.Logger
}

// NewStore creates an empty store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		sessions: make(map[string]*record),
		logger:   logger,
	}
}

// Create mints a new session and returns its id.
func (s *Store) Create(params Params) string {
	id := uuid.New().String()

	s.mu.Lock()
	s.sessions[id] = &record{
		params:    params,
		artifacts: make(map[Artifact]string),
	}
	s.mu.Unlock()

	s.logger.Info("session created", zap.String("session_id", id))
	return id
}

// Exists reports whether the session is known.
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[id]
	return ok
}

// Params returns the session's style parameters.
func (s *Store) Params(id string) (Params, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	if !ok {
		return Params{}, false
	}
	return rec.params, true
}

// AppendProgress appends one message to the history and replaces the
// current status. Appends to an unknown session are dropped.
func (s *Store) AppendProgress(id, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if !ok {
		return
	}
	rec.history = append(rec.history, ProgressEntry{Time: time.Now(), Message: message})
	rec.status = message
}

// Progress returns a copy of the history plus the current status.
func (s *Store) Progress(id string) ([]ProgressEntry, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	if !ok {
		return nil, "", false
	}
	history := make([]ProgressEntry, len(rec.history))
	copy(history, rec.history)
	return history, rec.status, true
}

// Put stores a named artifact. Writes to an unknown session are dropped.
func (s *Store) Put(id string, name Artifact, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if !ok {
		return
	}
	rec.artifacts[name] = value
}

// Get returns a named artifact. The second result is false when the
// session is unknown or the artifact has not been produced.
func (s *Store) Get(id string, name Artifact) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	if !ok {
		return "", false
	}
	v, ok := rec.artifacts[name]
	return v, ok
}

// SetTruncated flags the session's article as possibly incomplete
// (continuation rounds exhausted with the sentinel still present).
func (s *Store) SetTruncated(id string, truncated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.sessions[id]; ok {
		rec.truncated = truncated
	}
}

// Truncated reports whether the session's article is flagged incomplete.
func (s *Store) Truncated(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	return ok && rec.truncated
}

// TryBegin atomically marks the session as having a worker in flight.
// It returns false when the session is unknown or a worker is already
// running, guarding against double-started background tasks.
func (s *Store) TryBegin(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[id]
	if !ok || rec.busy {
		return false
	}
	rec.busy = true
	return true
}

// End clears the in-flight flag.
func (s *Store) End(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.sessions[id]; ok {
		rec.busy = false
	}
}

// Reset removes the session and everything it owns. Subsequent reads
// under the same id report not-found; subsequent writes are dropped.
func (s *Store) Reset(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	s.logger.Info("session reset", zap.String("session_id", id))
}
