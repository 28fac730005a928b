package xxhverify

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreManager holds regular expressions for paths the enumerator skips.
// Patterns match the slash-separated path relative to the tree root.
type IgnoreManager struct {
	ignorePath string
	patterns   []*regexp.Regexp
	loaded     bool
}

// NewIgnoreManager creates an ignore manager reading ignorePath.
// An empty ignorePath means patterns only come from AddPattern.
func NewIgnoreManager(ignorePath string) *IgnoreManager {
	return &IgnoreManager{
		ignorePath: ignorePath,
		patterns:   make([]*regexp.Regexp, 0),
		loaded:     ignorePath == "",
	}
}

// LoadIgnorePatterns loads patterns from the ignore file once
func (im *IgnoreManager) LoadIgnorePatterns() error {
	if im.loaded {
		return nil // Already loaded
	}

	file, err := os.Open(im.ignorePath)
	if err != nil {
		return fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		pattern, err := regexp.Compile(line)
		if err != nil {
			return fmt.Errorf("invalid regex pattern at line %d: %s - %w", lineNum, line, err)
		}

		im.patterns = append(im.patterns, pattern)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading ignore file: %w", err)
	}

	VerboseLog(2, "Loaded %d ignore patterns from %s", len(im.patterns), im.ignorePath)
	im.loaded = true
	return nil
}

// AddPattern adds a new ignore pattern
func (im *IgnoreManager) AddPattern(patternStr string) error {
	pattern, err := regexp.Compile(patternStr)
	if err != nil {
		return fmt.Errorf("invalid regex pattern: %s - %w", patternStr, err)
	}

	im.patterns = append(im.patterns, pattern)
	return nil
}

// ShouldIgnore checks if a relative path matches any pattern.
// LoadIgnorePatterns must have succeeded first.
func (im *IgnoreManager) ShouldIgnore(relativePath string) bool {
	// Normalise path separators to forward slashes for consistent pattern matching
	normalisedPath := filepath.ToSlash(relativePath)

	for _, pattern := range im.patterns {
		if pattern.MatchString(normalisedPath) {
			return true
		}
	}

	return false
}

// Patterns returns all loaded patterns
func (im *IgnoreManager) Patterns() []*regexp.Regexp {
	return im.patterns
}

// HasPatterns returns true if there are any ignore patterns
func (im *IgnoreManager) HasPatterns() bool {
	return len(im.patterns) > 0
}

// IgnoreFilePath returns the path to the ignore file
func (im *IgnoreManager) IgnoreFilePath() string {
	return im.ignorePath
}
