// Package prompt holds the prompt templates for every completion call
// site in the pipeline.
//
// Templates use langchaingo's prompts package with Go template syntax.
// Values are inserted verbatim; file contents are never parsed as
// template text.
package prompt

import "github.com/tmc/langchaingo/prompts"

// ContinuationSentinel is the out-of-band marker a drafting completion
// emits when its output is truncated and must be continued.
const ContinuationSentinel = "<<<CONTINUE>>>"

// FileRoles summarizes the purpose of each file from the directory tree alone.
var FileRoles = prompts.NewPromptTemplate(`Look at the directory structure below and concisely summarize the role of each file.

Directory structure:
{{.directory_tree}}
`, []string{"directory_tree"})

// FileAnalysis produces a structured per-file analysis as a JSON section list.
var FileAnalysis = prompts.NewPromptTemplate(`# File: {{.file_path}}

Below is the complete code of the file "{{.file_path}}".
Write the explanation in {{.language}}.

[Output format]
Respond strictly in the following JSON shape:
{
  "sections": [
    {
      "id": "section_1",
      "title": "name of the feature or section",
      "description": "purpose of this feature, its control flow, design intent, and error handling",
      "code_block": "the complete code this section discusses"
    },
    {
      "id": "section_2",
      "title": "another feature or section title",
      "description": "detailed explanation of that feature",
      "code_block": "the corresponding complete code"
    }
  ]
}

[Rules]
- Output must follow the JSON shape above and nothing else.
- Give every section a unique identifier (section_1, section_2, ...).
- code_block must contain the complete code for the section. Do not elide.

The file's code follows:
{{.file_content}}
`, []string{"file_path", "file_content", "language"})

// Outline produces the chapters/sections/items outline as JSON.
var Outline = prompts.NewPromptTemplate(`You are a capable software engineer and technical writer.
Based on the context below, produce an article outline that conforms strictly to this JSON schema.

[JSON schema]
{
  "chapters": [
    {
      "id": "chapter_1",
      "title": "Chapter 1: chapter title",
      "sections": [
        {
          "id": "section_1",
          "title": "1-1: section title",
          "items": [
            {
              "id": "item_1",
              "title": "1-1-1: item title",
              "summary": "summary of the item's content",
              "code_ref": "identifier of the matching code-analysis section, or empty string / null when no code applies"
            }
          ]
        }
      ]
    }
  ]
}

[Context]
1) Directory structure:
{{.directory_tree}}

2) File role summary:
{{.file_roles}}

3) Detailed code analysis:
{{.detailed_code_analysis}}
Note: the detailed code analysis is JSON with a unique identifier per feature. When an outline item refers to a code block, it must carry that identifier (section_1, section_2, ...) in code_ref.

4) Full file contents (for reference):
{{.project_files_content}}

[Additional information]
- Repository URL: {{.repo_url}}
- Target audience: {{.target_audience}}
- Tone: {{.tone}}
- Extra instructions: {{.additional_instructions}}
- Explanation language: {{.language}}

[Output requirements]
- Cover everything the article should include.
- The first chapter must be an introduction and the last chapter a conclusion.
- There is no limit on the number of chapters, sections, or items. Add as many as coverage requires.
- Output the outline as JSON only, strictly following the schema, with no extra text or commentary.
- Every item must carry a title, a "summary", and a "code_ref" (empty string or null when no code block applies).
`, []string{
	"directory_tree", "file_roles", "detailed_code_analysis", "project_files_content",
	"repo_url", "target_audience", "tone", "additional_instructions", "language",
})

// ArticleWhole generates the entire article in one call.
var ArticleWhole = prompts.NewPromptTemplate(`You are a capable software engineer and technical writer.

Using the information below and the previously confirmed JSON outline, write the final technical article in {{.language}}.

[Confirmed JSON outline]
{{.outline}}

[Earlier article draft (may be empty)]
{{.prior_article}}

[Other context]
1) Directory structure:
{{.directory_tree}}

2) File role summary:
{{.file_roles}}

3) Detailed code analysis:
{{.detailed_code_analysis}}

Note: the detailed code analysis is JSON with a unique identifier per feature. Use the identifiers (section_1, section_2, ...) to pull the matching code blocks into the article.

4) Full file contents:
{{.project_files_content}}

[Additional information]
- Repository URL: {{.repo_url}}
- Target audience: {{.target_audience}}
- Tone: {{.tone}}
- Extra instructions: {{.additional_instructions}}

[Output requirements]
- Cover every item of the confirmed outline in readable Markdown.
- Structure the article into chapters, sections, and items, and include the relevant code blocks verbatim.
- Never elide code blocks; show their complete content.
- Readers care most about control flow, so spend the most volume on flow explanations and their code blocks.
- When an earlier article draft is present above, it has been reviewed by a human: refine it against the confirmed outline, keep its deliberate edits, and rewrite only what conflicts with the outline. When it is empty, write the article from scratch.
- Output nothing but the article itself. No commentary.
- If the output grows long, split it. Elision is forbidden.
- When splitting, the output must end with the marker <<<CONTINUE>>>.
`, []string{
	"directory_tree", "file_roles", "detailed_code_analysis", "project_files_content",
	"repo_url", "target_audience", "tone", "additional_instructions", "language", "outline",
	"prior_article",
})

// Chapter generates one chapter from its outline fragment plus the
// article text accumulated so far.
var Chapter = prompts.NewPromptTemplate(`You are a capable software engineer and technical writer.

Using the single-chapter outline and the context below, write that chapter's article body in Markdown, in {{.language}}.
Stay consistent with the already generated text (previous_text) and avoid duplicating it.

[This chapter's outline (JSON)]
{{.chapter_json}}

[Rules]
- Use chapter, section, and item headings in that order for a readable Markdown structure.
- When code_ref is set, quote the matching code block from the detailed code analysis.
- When an earlier full-article draft is present, it has been reviewed by a human: reuse its matching chapter text as the base and refine it to this chapter's outline instead of writing from scratch.
- Never elide code blocks. If the output grows long, split the Markdown and end with <<<CONTINUE>>>.
- Output nothing but the article body.

[Already generated text]
{{.previous_text}}

[Earlier full-article draft (may be empty)]
{{.prior_article}}

[Reference]
- Directory structure: {{.directory_tree}}
- File role summary: {{.file_roles}}
- Detailed code analysis: {{.detailed_code_analysis}}
- Full file contents: {{.project_files_content}}
- Repository URL: {{.repo_url}}
- Target audience: {{.target_audience}}
- Tone: {{.tone}}
- Extra instructions: {{.additional_instructions}}

[Output format]
- Start the chapter with its title as a # heading.
- Use ## for sections and ### for items.
- Use fenced Markdown code blocks.
- If the output is long, end with exactly <<<CONTINUE>>> and resume from there in the next output.
`, []string{
	"chapter_json", "previous_text", "prior_article",
	"directory_tree", "file_roles", "detailed_code_analysis", "project_files_content",
	"repo_url", "target_audience", "tone", "additional_instructions", "language",
})

// Continuation asks for the next chunk of a truncated generation. It
// carries the entire accumulated text plus the full original prompt.
var Continuation = prompts.NewPromptTemplate(`A partially generated article and the prompt that produced it follow.
Generate the continuation of the article based on both.

Article so far:
{{.accumulated}}

Prompt:
####################################################################################################
{{.original_prompt}}
####################################################################################################
`, []string{"accumulated", "original_prompt"})
