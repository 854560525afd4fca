package score

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Weights are the per-component score ceilings. They must sum to 100 so
// the composite stays on a fixed scale.
type Weights struct {
	Age          int `yaml:"age"`
	Size         int `yaml:"size"`
	BusinessType int `yaml:"business_type"`
	Website      int `yaml:"website"`
	Contact      int `yaml:"contact"`
}

// DefaultWeights returns the standard 30/25/20/10/15 split.
func DefaultWeights() Weights {
	return Weights{Age: 30, Size: 25, BusinessType: 20, Website: 10, Contact: 15}
}

// Validate rejects negative weights and totals other than 100.
func (w Weights) Validate() error {
	components := []struct {
		name  string
		value int
	}{
		{"age", w.Age},
		{"size", w.Size},
		{"business_type", w.BusinessType},
		{"website", w.Website},
		{"contact", w.Contact},
	}
	sum := 0
	for _, c := range components {
		if c.value < 0 {
			return eris.Errorf("score: %s weight cannot be negative", c.name)
		}
		sum += c.value
	}
	if sum != 100 {
		return eris.Errorf("score: weights must sum to 100, got %d", sum)
	}
	return nil
}

// LoadWeights reads a YAML weights file. Omitted keys keep their
// default values; the merged result still has to sum to 100.
func LoadWeights(path string) (Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, eris.Wrap(err, "score: read weights file")
	}
	w := DefaultWeights()
	if err := yaml.Unmarshal(data, &w); err != nil {
		return Weights{}, eris.Wrap(err, "score: parse weights file")
	}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}
