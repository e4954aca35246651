package alerts

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed quips.yaml
var defaultQuipsYAML []byte

// ResetTimePlaceholder in a quip is replaced with the countdown to reset.
const ResetTimePlaceholder = "{reset_time}"

// QuipPicker selects the remark text for a category.
type QuipPicker func(Category) string

// QuipTable holds the remark lines for each category.
type QuipTable map[Category][]string

var requiredCategories = []Category{
	CategoryLow, CategoryMedium, CategoryHigh, CategoryCritical, CategoryReset,
}

// DefaultQuips returns the built-in quip table.
func DefaultQuips() QuipTable {
	table, err := LoadQuipsFromBytes(defaultQuipsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded quips: %v", err))
	}
	return table
}

// LoadQuips reads a YAML quip table from path.
func LoadQuips(path string) (QuipTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quips file %s: %w", path, err)
	}
	table, err := LoadQuipsFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("quips file %s: %w", path, err)
	}
	return table, nil
}

// LoadQuipsFromBytes parses a YAML quip table. Every category must have at
// least one line.
func LoadQuipsFromBytes(data []byte) (QuipTable, error) {
	var table QuipTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse quips: %w", err)
	}
	for _, c := range requiredCategories {
		if len(table[c]) == 0 {
			return nil, fmt.Errorf("no quips for category %q", c)
		}
	}
	return table, nil
}

// Picker returns a picker drawing uniformly from the table using rng.
func (t QuipTable) Picker(rng *rand.Rand) QuipPicker {
	return func(c Category) string {
		lines := t[c]
		if len(lines) == 0 {
			return ""
		}
		return lines[rng.IntN(len(lines))]
	}
}
