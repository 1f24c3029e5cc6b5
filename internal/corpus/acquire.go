package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"

	git "github.com/go-git/go-git/v5"
	"go.uber.org/zap"
)

// ErrNoSource indicates neither an upload nor a remote URL was provided.
var ErrNoSource = errors.New("no project source: provide uploaded files or a repository URL")

// Source describes where a session's corpus came from.
type Source string

const (
	// SourceUpload means the work directory was pre-populated by the caller.
	SourceUpload Source = "upload"

	// SourceClone means the work directory was filled by cloning repoURL.
	SourceClone Source = "clone"
)

// Acquire materializes the project in workDir. A non-empty workDir is
// taken as an uploaded file set and used as-is; otherwise repoURL is
// cloned into it. Returns which source was used.
func Acquire(ctx context.Context, workDir, repoURL string, logger *zap.Logger) (Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		return "", fmt.Errorf("reading work directory %s: %w", workDir, err)
	}
	if len(entries) > 0 {
		logger.Info("using uploaded project files", zap.String("dir", workDir))
		return SourceUpload, nil
	}

	if repoURL == "" {
		return "", ErrNoSource
	}

	logger.Info("cloning repository", zap.String("url", repoURL), zap.String("dir", workDir))
	if _, err := git.PlainCloneContext(ctx, workDir, false, &git.CloneOptions{
		URL:   repoURL,
		Depth: 1,
	}); err != nil {
		return "", fmt.Errorf("cloning %s: %w", repoURL, err)
	}
	return SourceClone, nil
}
