package prompt

import (
	"bufio"
	"context"
	"encoding/json"
	"path"
	"sort"
	"strings"
)

// HeuristicClient is the offline fallback for the ai.Client port: it builds a
// summary from the manifest alone, without calling any provider. Wired when
// OpenAI is disabled in config.
type HeuristicClient struct{}

var extLanguages = map[string]string{
	".go":   "Go",
	".java": "Java",
	".kt":   "Kotlin",
	".py":   "Python",
	".js":   "JavaScript",
	".ts":   "TypeScript",
	".rb":   "Ruby",
	".rs":   "Rust",
	".c":    "C",
	".cpp":  "C++",
	".cs":   "C#",
	".php":  "PHP",
	".sql":  "SQL",
	".sh":   "Shell",
}

// Summarize inspects the manifest's file listing and returns a JSON string
// matching the schema used by the system prompt. It never fails.
func (HeuristicClient) Summarize(_ context.Context, manifest string) (string, error) {
	type Risk struct {
		Area           string `json:"area"`
		Summary        string `json:"summary"`
		Recommendation string `json:"recommendation"`
	}
	type Output struct {
		Summary    string   `json:"summary"`
		Languages  []string `json:"languages"`
		Components []string `json:"components"`
		Risks      []Risk   `json:"risks"`
		Advice     string   `json:"advice"`
	}

	langCounts := map[string]int{}
	topDirs := map[string]bool{}
	files := 0

	s := bufio.NewScanner(strings.NewReader(manifest))
	inFiles := false
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		switch {
		case line == "Files:":
			inFiles = true
			continue
		case line == "" || strings.HasPrefix(line, "README:"):
			inFiles = false
			continue
		}
		if !inFiles || strings.HasPrefix(line, "...") {
			continue
		}
		files++
		if lang, ok := extLanguages[path.Ext(line)]; ok {
			langCounts[lang]++
		}
		if dir := strings.SplitN(line, "/", 2); len(dir) == 2 {
			topDirs[dir[0]] = true
		}
	}

	langs := make([]string, 0, len(langCounts))
	for l := range langCounts {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool {
		if langCounts[langs[i]] != langCounts[langs[j]] {
			return langCounts[langs[i]] > langCounts[langs[j]]
		}
		return langs[i] < langs[j]
	})

	comps := make([]string, 0, len(topDirs))
	for d := range topDirs {
		comps = append(comps, d)
	}
	sort.Strings(comps)

	out := Output{
		Summary:    summaryLine(files, langs),
		Languages:  langs,
		Components: comps,
		Risks:      []Risk{},
		Advice:     "Heuristic summary only; enable the AI provider for a full review.",
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func summaryLine(files int, langs []string) string {
	if files == 0 {
		return "Empty or unreadable working tree."
	}
	if len(langs) == 0 {
		return "Working tree contains no recognized source files."
	}
	return strings.Join(langs, ", ") + " repository."
}
