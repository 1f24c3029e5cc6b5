// Package outline turns the intermediate analysis artifacts into the
// structured chapters/sections/items document that governs drafting,
// and parses outlines back from raw text (generated or human-edited).
package outline

import (
	"encoding/json"
	"fmt"

	"github.com/scribelabs/scribed/internal/prompt"
)

// Item is one leaf of the outline. CodeRef, when non-empty, names a
// section id from the detailed code analysis.
type Item struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	CodeRef string `json:"code_ref"`
}

// Section groups items under one heading.
type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Items []Item `json:"items"`
}

// Chapter groups sections. Chapters render in order.
type Chapter struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// Outline is the full structured document.
type Outline struct {
	Chapters []Chapter `json:"chapters"`
}

// Artifacts bundles the per-session corpus artifacts every generation
// prompt receives.
type Artifacts struct {
	DirectoryTree        string
	FileRoles            string
	DetailedCodeAnalysis string
	ProjectFilesContent  string
}

// Parse reads an outline from raw model output or human-edited text. A
// single outer code fence wrapping the whole document is stripped
// first; embedded fences are left alone.
func Parse(raw string) (*Outline, error) {
	var o Outline
	if err := json.Unmarshal([]byte(prompt.StripOuterFence(raw)), &o); err != nil {
		return nil, fmt.Errorf("outline does not parse: %w", err)
	}
	if len(o.Chapters) == 0 {
		return nil, fmt.Errorf("outline does not parse: no chapters")
	}
	return &o, nil
}

// Validate checks every non-empty CodeRef against the known analysis
// section ids and returns the dangling ones. Dangling references are a
// soft condition: outlines are human-editable and may reference ids
// loosely, so callers log them and proceed.
func (o *Outline) Validate(knownIDs map[string]bool) []string {
	var dangling []string
	for _, ch := range o.Chapters {
		for _, sec := range ch.Sections {
			for _, item := range sec.Items {
				if item.CodeRef != "" && !knownIDs[item.CodeRef] {
					dangling = append(dangling, item.CodeRef)
				}
			}
		}
	}
	return dangling
}
