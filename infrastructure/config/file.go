package config

import (
	"fmt"
	"os"

	domainconfig "github.com/ariellewolter/research-notebook-ver4-sub004/domain/config"

	"gopkg.in/yaml.v3"
)

// Limits and LiveLimits live in the domain so the link service can read
// them without depending on this package
type (
	Limits     = domainconfig.Limits
	LiveLimits = domainconfig.LiveLimits
)

// DefaultLimits returns the limits used when no file overrides them
func DefaultLimits() Limits { return domainconfig.DefaultLimits() }

// NewLiveLimits creates a holder seeded with initial
func NewLiveLimits(initial Limits) *LiveLimits { return domainconfig.NewLiveLimits(initial) }

// SummaryTable maps one entity type onto the table and columns holding its label data
type SummaryTable struct {
	Table        string `yaml:"table"`
	IDColumn     string `yaml:"id"`
	TitleColumn  string `yaml:"title,omitempty"`
	NameColumn   string `yaml:"name,omitempty"`
	TextColumn   string `yaml:"text,omitempty"`
	PageColumn   string `yaml:"page,omitempty"`
	ParentColumn string `yaml:"parent_name,omitempty"`
}

// StaticSummary is one fixed entry served by the static resolver
type StaticSummary struct {
	Type       string `yaml:"type"`
	ID         string `yaml:"id"`
	Title      string `yaml:"title,omitempty"`
	Name       string `yaml:"name,omitempty"`
	Text       string `yaml:"text,omitempty"`
	Page       int    `yaml:"page,omitempty"`
	ParentName string `yaml:"parent_name,omitempty"`
}

// SummarySources configures where entity summaries come from
type SummarySources struct {
	Tables map[string]SummaryTable `yaml:"tables,omitempty"`
	Static []StaticSummary         `yaml:"static,omitempty"`
}

// FileConfig is the layout of the optional YAML runtime file
type FileConfig struct {
	Version   string         `yaml:"version"`
	Limits    Limits         `yaml:"limits"`
	Summaries SummarySources `yaml:"summaries"`
}

// LoadFile reads a YAML runtime file. Limits absent from the file keep their defaults.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return ParseFile(data)
}

// ParseFile decodes YAML runtime configuration
func ParseFile(data []byte) (*FileConfig, error) {
	cfg := &FileConfig{Limits: DefaultLimits()}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Limits.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
