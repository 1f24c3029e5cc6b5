package analysis

import "encoding/json"

// Section is one named fragment of a file's analysis: a stable id, a
// title, a description, and the exact code it discusses.
type Section struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CodeBlock   string `json:"code_block"`
}

// FileAnalysis is the structured analysis of one file, tagged by its
// path relative to the project root.
type FileAnalysis struct {
	Path     string    `json:"path"`
	Sections []Section `json:"sections"`
}

// Result is the output of the analysis stage.
type Result struct {
	// FileRoles is the freeform directory-role summary.
	FileRoles string

	// Files holds per-file analyses in processing order. Files whose
	// analysis call failed are absent.
	Files []FileAnalysis
}

// SectionIDs returns the set of section ids across all files, used to
// validate outline code references.
func (r *Result) SectionIDs() map[string]bool {
	ids := make(map[string]bool)
	for _, f := range r.Files {
		for _, sec := range f.Sections {
			ids[sec.ID] = true
		}
	}
	return ids
}

// MarshalFiles serializes the per-file analyses for storage as a
// session artifact and for inclusion in downstream prompts.
func MarshalFiles(files []FileAnalysis) (string, error) {
	b, err := json.MarshalIndent(files, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalFiles parses a stored analysis artifact.
func UnmarshalFiles(s string) ([]FileAnalysis, error) {
	var files []FileAnalysis
	if err := json.Unmarshal([]byte(s), &files); err != nil {
		return nil, err
	}
	return files, nil
}
