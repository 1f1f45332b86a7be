package insight

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const readmeExcerptBytes = 4096

// BuildManifest walks a stored checkout and produces the text handed to the AI
// client: a relative file listing (capped at maxFiles) plus the head of the
// README when one exists. The .git directory is never included.
func BuildManifest(root string, maxFiles int) (string, error) {
	if maxFiles <= 0 {
		maxFiles = 200
	}

	var files []string
	truncated := false
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if len(files) >= maxFiles {
			truncated = true
			return filepath.SkipAll
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Files:\n")
	for _, f := range files {
		b.WriteString(f)
		b.WriteByte('\n')
	}
	if truncated {
		b.WriteString("... (listing truncated)\n")
	}
	if readme := readmeExcerpt(root); readme != "" {
		b.WriteString("\nREADME:\n")
		b.WriteString(readme)
	}
	return b.String(), nil
}

func readmeExcerpt(root string) string {
	for _, name := range []string{"README.md", "README", "readme.md", "Readme.md"} {
		f, err := os.Open(filepath.Join(root, name))
		if err != nil {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(f, readmeExcerptBytes))
		f.Close()
		if err != nil {
			continue
		}
		return string(data)
	}
	return ""
}
