package common

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DatePlaceholder is substituted with the run date in extract patterns.
const DatePlaceholder = "{date}"

// CleanPath returns the absolute, cleaned form of path.
func CleanPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return abs, nil
}

// ValidatePath resolves path and fails unless it lies inside baseDir.
func ValidatePath(path, baseDir string) (string, error) {
	target, err := CleanPath(path)
	if err != nil {
		return "", err
	}
	base, err := CleanPath(baseDir)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", target, base)
	}
	return target, nil
}

// DatedPath expands pattern for date and resolves it inside dir.
func DatedPath(dir, pattern, date string) (string, error) {
	if !strings.Contains(pattern, DatePlaceholder) {
		return "", fmt.Errorf("pattern %q has no %s placeholder", pattern, DatePlaceholder)
	}
	name := strings.ReplaceAll(pattern, DatePlaceholder, date)
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("pattern %q must be relative to the source directory", pattern)
	}

	base, err := CleanPath(dir)
	if err != nil {
		return "", err
	}
	return ValidatePath(filepath.Join(base, name), base)
}
