package middleware

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities for the HTTP boundary.
// The core validator only rejects blank references; the HTTP layer is
// stricter so obviously broken requests never reach the clone path.

var (
	branchPattern     = regexp.MustCompile(`^[\w\-./]+$`)
	analysisIDPattern = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)
)

// ValidateRepositoryURL validates repository locators accepted over HTTP
func ValidateRepositoryURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("repository URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid repository URL format: %w", err)
	}

	switch u.Scheme {
	case "http", "https", "git", "ssh", "file":
	default:
		return fmt.Errorf("invalid repository URL scheme: %s (allowed: http, https, git, ssh, file)", u.Scheme)
	}

	return nil
}

// ValidateBranchName validates branch name format
func ValidateBranchName(branch string) error {
	if strings.TrimSpace(branch) == "" {
		return fmt.Errorf("branch name cannot be empty")
	}
	if !branchPattern.MatchString(branch) {
		return fmt.Errorf("invalid branch name format")
	}
	return nil
}

// ValidateAnalysisID validates analysis ID format (UUID)
func ValidateAnalysisID(id string) error {
	if id == "" {
		return fmt.Errorf("analysis ID cannot be empty")
	}
	if !analysisIDPattern.MatchString(id) {
		return fmt.Errorf("invalid analysis ID format")
	}
	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}
