package draft

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scribelabs/scribed/internal/llm"
	"github.com/scribelabs/scribed/internal/outline"
	"github.com/scribelabs/scribed/internal/session"
)

const threeChapterOutline = `{
  "chapters": [
    {"id": "ch1", "title": "Intro", "sections": []},
    {"id": "ch2", "title": "Core", "sections": []},
    {"id": "ch3", "title": "Closing", "sections": []}
  ]
}`

func testConfig() Config {
	return Config{Model: "gpt-4o", MaxContinuationRounds: 10}
}

func TestNew(t *testing.T) {
	client := &llm.StubClient{}

	s, err := New("per_chapter", client, testConfig(), zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &PerChapter{}, s)

	s, err = New("whole_document", client, testConfig(), zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &WholeDocument{}, s)

	_, err = New("per_paragraph", client, testConfig(), zap.NewNop())
	require.Error(t, err)

	_, err = New("per_chapter", nil, testConfig(), zap.NewNop())
	require.Error(t, err)

	_, err = New("per_chapter", client, Config{Model: "m"}, zap.NewNop())
	require.Error(t, err)
}

func TestWholeDocument_Draft(t *testing.T) {
	client := &llm.StubClient{Responses: []string{"# Article\n\nbody"}}
	s, err := New("whole_document", client, testConfig(), zap.NewNop())
	require.NoError(t, err)

	res, err := s.Draft(context.Background(), threeChapterOutline, outline.Artifacts{
		DirectoryTree: "├── proj/",
	}, session.Params{Language: "ja"}, "", nil)
	require.NoError(t, err)

	assert.Equal(t, "# Article\n\nbody", res.Article)
	assert.Equal(t, 0, res.Rounds)
	assert.False(t, res.Truncated)

	require.Len(t, client.Calls, 1)
	assert.Contains(t, client.Calls[0], "├── proj/")
	assert.Contains(t, client.Calls[0], `"id": "ch2"`)
	assert.Equal(t, []string{"gpt-4o"}, client.Models)
}

func TestWholeDocument_Continuation(t *testing.T) {
	client := &llm.StubClient{Responses: []string{
		"first half<<<CONTINUE>>>",
		"second half",
	}}
	s, err := New("whole_document", client, testConfig(), zap.NewNop())
	require.NoError(t, err)

	res, err := s.Draft(context.Background(), threeChapterOutline, outline.Artifacts{}, session.Params{}, "", nil)
	require.NoError(t, err)

	assert.Equal(t, "first halfsecond half", res.Article)
	assert.Equal(t, 1, res.Rounds)
	assert.False(t, res.Truncated)
	assert.Len(t, client.Calls, 2)

	// The continuation call carries the accumulated text.
	assert.Contains(t, client.Calls[1], "first half")
}

func TestPerChapter_Draft(t *testing.T) {
	// Chapter 2 needs two continuation rounds; 1 and 3 complete at once.
	client := &llm.StubClient{Responses: []string{
		"## Intro\nintro text",
		"## Core\npart one<<<CONTINUE>>>",
		"part two<<<CONTINUE>>>",
		"part three",
		"## Closing\nclosing text",
	}}
	s, err := New("per_chapter", client, testConfig(), zap.NewNop())
	require.NoError(t, err)

	var progress []string
	res, err := s.Draft(context.Background(), threeChapterOutline, outline.Artifacts{}, session.Params{}, "", func(m string) {
		progress = append(progress, m)
	})
	require.NoError(t, err)

	want := "## Intro\nintro text\n\n## Core\npart onepart twopart three\n\n## Closing\nclosing text"
	assert.Equal(t, want, res.Article)
	assert.Equal(t, 2, res.Rounds)
	assert.False(t, res.Truncated)
	assert.NotContains(t, res.Article, "CONTINUE")

	// Chapters appear in outline order.
	intro := strings.Index(res.Article, "## Intro")
	core := strings.Index(res.Article, "## Core")
	closing := strings.Index(res.Article, "## Closing")
	assert.True(t, intro < core && core < closing)

	assert.Contains(t, progress, "generating chapter 1/3: Intro")
	assert.Contains(t, progress, "generating chapter 2/3: Core")
	assert.Contains(t, progress, "generating chapter 3/3: Closing")

	// Later chapter prompts carry the text drafted so far.
	require.Len(t, client.Calls, 5)
	assert.Contains(t, client.Calls[4], "intro text")
	assert.Contains(t, client.Calls[4], "part three")
}

func TestWholeDocument_PriorArticleSeedsPrompt(t *testing.T) {
	client := &llm.StubClient{Responses: []string{"# Article\n\nrefined"}}
	s, err := New("whole_document", client, testConfig(), zap.NewNop())
	require.NoError(t, err)

	const edited = "# Article\n\nhand-edited paragraph to preserve"
	res, err := s.Draft(context.Background(), threeChapterOutline, outline.Artifacts{}, session.Params{}, edited, nil)
	require.NoError(t, err)
	assert.Equal(t, "# Article\n\nrefined", res.Article)

	require.Len(t, client.Calls, 1)
	assert.Contains(t, client.Calls[0], edited)
}

func TestPerChapter_PriorArticleSeedsEveryChapterPrompt(t *testing.T) {
	client := &llm.StubClient{Responses: []string{"## chapter"}}
	s, err := New("per_chapter", client, testConfig(), zap.NewNop())
	require.NoError(t, err)

	const edited = "hand-edited paragraph to preserve"
	_, err = s.Draft(context.Background(), threeChapterOutline, outline.Artifacts{}, session.Params{}, edited, nil)
	require.NoError(t, err)

	require.Len(t, client.Calls, 3)
	for i, call := range client.Calls {
		assert.Contains(t, call, edited, "chapter prompt %d", i+1)
	}
}

func TestPerChapter_OutlineParseAborts(t *testing.T) {
	client := &llm.StubClient{}
	s, err := New("per_chapter", client, testConfig(), zap.NewNop())
	require.NoError(t, err)

	_, err = s.Draft(context.Background(), "not an outline", outline.Artifacts{}, session.Params{}, "", nil)
	require.ErrorIs(t, err, ErrOutlineParse)
	assert.Empty(t, client.Calls)
}

func TestWholeDocument_OutlineParseAborts(t *testing.T) {
	client := &llm.StubClient{}
	s, err := New("whole_document", client, testConfig(), zap.NewNop())
	require.NoError(t, err)

	_, err = s.Draft(context.Background(), `{"chapters": []}`, outline.Artifacts{}, session.Params{}, "", nil)
	require.ErrorIs(t, err, ErrOutlineParse)
	assert.Empty(t, client.Calls)
}

func TestPerChapter_RoundBudgetExhausted(t *testing.T) {
	cfg := testConfig()
	cfg.MaxContinuationRounds = 2

	client := &llm.StubClient{Fn: func(ctx context.Context, model, prompt string) (string, error) {
		return "never done<<<CONTINUE>>>", nil
	}}
	s, err := New("per_chapter", client, cfg, zap.NewNop())
	require.NoError(t, err)

	res, err := s.Draft(context.Background(), `{"chapters":[{"id":"ch1","title":"Only","sections":[]}]}`, outline.Artifacts{}, session.Params{}, "", nil)
	require.NoError(t, err)

	// Budget bounds the calls: initial + exactly two continuations.
	assert.Len(t, client.Calls, 3)
	assert.Equal(t, 2, res.Rounds)
	assert.True(t, res.Truncated)

	// The residual sentinel is scrubbed from the final article.
	assert.NotContains(t, res.Article, "CONTINUE")
}

func TestPerChapter_ChapterCallError(t *testing.T) {
	client := &llm.StubClient{
		Responses: []string{"## Intro\nok"},
		Errs:      map[int]error{1: errors.New("backend down")},
	}
	s, err := New("per_chapter", client, testConfig(), zap.NewNop())
	require.NoError(t, err)

	_, err = s.Draft(context.Background(), threeChapterOutline, outline.Artifacts{}, session.Params{}, "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chapter ch2 call")
}

func TestFinalize_StripsFenceAndSentinels(t *testing.T) {
	got := finalize("```markdown\n# Title\n\nbody<<<CONTINUE>>>\n```")
	assert.Equal(t, "# Title\n\nbody", got)
}
