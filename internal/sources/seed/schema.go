package seed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the top-level structure of a seed file.
type File struct {
	Collections []CollectionProps `yaml:"collections"`
}

// CollectionProps describes one collection and its links.
type CollectionProps struct {
	ID    string      `yaml:"id"`
	Owner string      `yaml:"owner"`
	Name  string      `yaml:"name,omitempty"`
	Links []LinkProps `yaml:"links"`
}

// LinkProps describes one saved link. Either Added (absolute) or Age
// (relative to load time) places the link in time; Age wins when both are set.
type LinkProps struct {
	ID          string     `yaml:"id"`
	URL         string     `yaml:"url"`
	Title       string     `yaml:"title,omitempty"`
	Added       *time.Time `yaml:"added,omitempty"`
	Age         Age        `yaml:"age,omitempty"`
	Opens       int        `yaml:"opens,omitempty"`
	OpenedAgo   Age        `yaml:"openedAgo,omitempty"`
	Shortlisted bool       `yaml:"shortlisted,omitempty"`
	Dismissed   bool       `yaml:"dismissed,omitempty"`
}

// Age is a duration written either as a Go duration ("36h") or as a
// whole number of days ("3d").
type Age time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Age) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: age must be a scalar", node.Line)
	}

	s := strings.TrimSpace(node.Value)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return fmt.Errorf("line %d: invalid day count %q", node.Line, s)
		}
		*a = Age(time.Duration(n) * 24 * time.Hour)
		return nil
	}

	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fmt.Errorf("line %d: invalid age %q", node.Line, s)
	}
	*a = Age(d)
	return nil
}
