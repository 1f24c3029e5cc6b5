package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripOuterFence(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", "# Title\nbody", "# Title\nbody"},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"json tag", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"markdown tag", "```markdown\n# T\n```", "# T"},
		{"surrounding whitespace", "  ```json\n{}\n```  \n", "{}"},
		{"unclosed fence", "```json\n{\"a\": 1}", "```json\n{\"a\": 1}"},
		{"fence not at start", "intro\n```\ncode\n```", "intro\n```\ncode\n```"},
		{"embedded fence kept", "```markdown\n# T\n```go\nx := 1\n```\n```", "# T\n```go\nx := 1\n```"},
		{"opening line has extra text", "```json {\"a\": 1}\n```", "```json {\"a\": 1}\n```"},
		{"single-line fence only", "```json", "```json"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripOuterFence(tc.in))
		})
	}
}

func TestTemplates_Format(t *testing.T) {
	out, err := FileRoles.Format(map[string]any{"directory_tree": "├── proj/"})
	require.NoError(t, err)
	assert.Contains(t, out, "├── proj/")

	out, err = FileAnalysis.Format(map[string]any{
		"file_path":    "main.go",
		"file_content": "package main",
		"language":     "ja",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "main.go")
	assert.Contains(t, out, "package main")

	out, err = Continuation.Format(map[string]any{
		"accumulated":     "text so far",
		"original_prompt": "original request",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "text so far")
	assert.Contains(t, out, "original request")
}

func TestTemplates_SentinelInstruction(t *testing.T) {
	// Drafting prompts must tell the model how to signal truncation.
	for name, format := range map[string]func(map[string]any) (string, error){
		"whole": ArticleWhole.Format,
		"chapter": func(vars map[string]any) (string, error) {
			vars["chapter_json"] = "{}"
			vars["previous_text"] = ""
			return Chapter.Format(vars)
		},
	} {
		vars := map[string]any{
			"directory_tree":          "t",
			"file_roles":              "r",
			"detailed_code_analysis":  "a",
			"project_files_content":   "c",
			"repo_url":                "u",
			"target_audience":         "aud",
			"tone":                    "tone",
			"additional_instructions": "none",
			"language":                "ja",
			"outline":                 "{}",
			"prior_article":           "",
		}
		out, err := format(vars)
		require.NoError(t, err, name)
		assert.Contains(t, out, ContinuationSentinel, name)
	}
}
