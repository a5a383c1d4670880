package output

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"
)

// Diff returns a unified diff between the YAML renderings of before and
// after, or "" when they render the same
func Diff(before, after interface{}, name string) (string, error) {
	oldYAML, err := renderYAML(before)
	if err != nil {
		return "", fmt.Errorf("failed to render previous %s: %w", name, err)
	}
	newYAML, err := renderYAML(after)
	if err != nil {
		return "", fmt.Errorf("failed to render current %s: %w", name, err)
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldYAML),
		B:        difflib.SplitLines(newYAML),
		FromFile: fmt.Sprintf("previous/%s", name),
		ToFile:   fmt.Sprintf("current/%s", name),
		Context:  3,
	}

	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("failed to generate diff: %w", err)
	}
	return text, nil
}

func renderYAML(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	generic, err := normalize(v)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(generic)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
