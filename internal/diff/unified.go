package diff

import (
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// unifiedDiff computes a unified diff between the original and sandbox
// version of a text file, capped at maxDiffLines lines.
func unifiedDiff(origPath, sandPath, rel string) ([]string, error) {
	origData, err := os.ReadFile(origPath)
	if err != nil {
		return nil, err
	}
	sandData, err := os.ReadFile(sandPath)
	if err != nil {
		return nil, err
	}

	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(origData)),
		B:        difflib.SplitLines(string(sandData)),
		FromFile: "original/" + rel,
		ToFile:   "sandbox/" + rel,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) > maxDiffLines {
		lines = lines[:maxDiffLines]
	}
	return lines, nil
}
