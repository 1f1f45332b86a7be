package prompt

import (
	"fmt"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a senior software architect reviewing a freshly checked-out code repository. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- languages lists the main languages inferred from file extensions, most prominent first.
- components is an array of short strings naming the major parts of the codebase.
- risks is an array of objects; include at least an area and a summary. Keep items concise.
- Base everything on the manifest provided; do not invent files that are not listed.

Schema (example with empty values):
{
  "summary": "<string>",
  "languages": ["<string>"],
  "components": ["<string>"],
  "risks": [
    {
      "area": "<string>",
      "summary": "<string>",
      "recommendation": "<string>"
    }
  ],
  "advice": "<string>"
}`
}

// GetUserPrompt wraps the working-tree manifest into a compact user message.
func GetUserPrompt(manifest string) string {
	return fmt.Sprintf("Summarize the repository described by this manifest and respond with the JSON per schema.\n\n%s", manifest)
}
