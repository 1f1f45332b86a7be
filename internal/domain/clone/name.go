package clone

import (
	"regexp"
	"strings"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

// ProjectNameFromURL derives a filesystem-safe project name from a repository URL:
// strip a trailing ".git", take the last path segment, drop anything outside
// [A-Za-z0-9_-]. Directory naming must never be the reason a clone aborts, so
// unparsable input falls back to a fixed token instead of failing.
func ProjectNameFromURL(repositoryURL string) string {
	url := strings.TrimSuffix(repositoryURL, ".git")
	segments := strings.Split(url, "/")
	name := unsafeNameChars.ReplaceAllString(segments[len(segments)-1], "")
	if name == "" {
		return "unknown-project"
	}
	return name
}

// SanitizeBranchFragment converts branch names like "feature/user-auth" to
// "feature-user-auth". Only used for directory naming; the checkout itself
// always gets the original, unsanitized ref.
func SanitizeBranchFragment(branchName string) string {
	return unsafeNameChars.ReplaceAllString(branchName, "-")
}
