package continuation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete_NoSentinel(t *testing.T) {
	called := false
	next := func(ctx context.Context, accumulated string) (string, error) {
		called = true
		return "", nil
	}

	res, err := Complete(context.Background(), "complete text", next, 10)
	require.NoError(t, err)
	assert.Equal(t, "complete text", res.Text)
	assert.Equal(t, 0, res.Rounds)
	assert.False(t, res.Truncated)
	assert.False(t, called)
}

func TestComplete_TwoRounds(t *testing.T) {
	var prompts []string
	chunks := []string{"second<<<CONTINUE>>>", "third"}
	next := func(ctx context.Context, accumulated string) (string, error) {
		prompts = append(prompts, accumulated)
		chunk := chunks[0]
		chunks = chunks[1:]
		return chunk, nil
	}

	res, err := Complete(context.Background(), "first<<<CONTINUE>>>", next, 10)
	require.NoError(t, err)
	assert.Equal(t, "firstsecondthird", res.Text)
	assert.Equal(t, 2, res.Rounds)
	assert.False(t, res.Truncated)

	// Each round sees the full accumulated text, sentinel stripped.
	require.Len(t, prompts, 2)
	assert.Equal(t, "first", prompts[0])
	assert.Equal(t, "firstsecond", prompts[1])
}

func TestComplete_MaxRoundsExhausted(t *testing.T) {
	calls := 0
	next := func(ctx context.Context, accumulated string) (string, error) {
		calls++
		return "more<<<CONTINUE>>>", nil
	}

	res, err := Complete(context.Background(), "start<<<CONTINUE>>>", next, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, res.Rounds)
	assert.True(t, res.Truncated)
	assert.True(t, HasSentinel(res.Text))
}

func TestComplete_ZeroMaxRounds(t *testing.T) {
	next := func(ctx context.Context, accumulated string) (string, error) {
		t.Fatal("next should not be called")
		return "", nil
	}

	res, err := Complete(context.Background(), "start<<<CONTINUE>>>", next, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Rounds)
	assert.True(t, res.Truncated)
}

func TestComplete_ContinuationError(t *testing.T) {
	boom := errors.New("model unavailable")
	next := func(ctx context.Context, accumulated string) (string, error) {
		return "", boom
	}

	res, err := Complete(context.Background(), "partial<<<CONTINUE>>>", next, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "partial", res.Text)
	assert.Equal(t, 0, res.Rounds)
}

func TestSentinelPattern_Variants(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"canonical", "text<<<CONTINUE>>>", true},
		{"single brackets", "text<continue>", true},
		{"four brackets", "text<<<<CONTINUE>>>>", true},
		{"mixed case", "text<<<Continue>>>", true},
		{"trailing fence", "text<<<CONTINUE>>>\n```", true},
		{"trailing fence and space", "text<<<CONTINUE>>> ```  ", true},
		{"trailing whitespace", "text<<<CONTINUE>>>\n\n", true},
		{"mid-text only", "a<<<CONTINUE>>>b", false},
		{"no sentinel", "plain text", false},
		{"word without brackets", "please continue", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HasSentinel(tc.text))
		})
	}
}

func TestStripAll(t *testing.T) {
	in := "a<<<CONTINUE>>>b<continue>c"
	assert.Equal(t, "abc", StripAll(in))
	assert.Equal(t, "clean", StripAll("clean"))
}
