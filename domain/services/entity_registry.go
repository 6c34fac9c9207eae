package services

import (
	"fmt"
	"strings"

	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/entities"
	"github.com/ariellewolter/research-notebook-ver4-sub004/domain/core/valueobjects"
)

// highlightLabelLength is the number of characters of highlighted text shown in a node label
const highlightLabelLength = 50

// NodeDescription is the display text derived for a graph node
type NodeDescription struct {
	Label string
	Title string
}

// Describer turns an entity summary into display text. It returns an empty
// description when the summary lacks the fields it needs.
type Describer func(summary *entities.EntitySummary) NodeDescription

// EntityTypeRegistry maps each entity type to its describer
type EntityTypeRegistry struct {
	describers map[valueobjects.EntityType]Describer
}

// NewEntityTypeRegistry returns a registry with a describer for every entity type
func NewEntityTypeRegistry() *EntityTypeRegistry {
	r := &EntityTypeRegistry{describers: make(map[valueobjects.EntityType]Describer)}

	r.Register(valueobjects.EntityTypeNote, byFields(titleOf))
	r.Register(valueobjects.EntityTypeHighlight, describeHighlight)
	r.Register(valueobjects.EntityTypeDatabaseEntry, byFields(nameOf))
	r.Register(valueobjects.EntityTypeProject, byFields(nameOf, titleOf))
	r.Register(valueobjects.EntityTypeExperiment, byFields(titleOf, nameOf))
	r.Register(valueobjects.EntityTypeProtocol, byFields(nameOf, titleOf))
	r.Register(valueobjects.EntityTypeProtocolExecution, describeExecution)
	r.Register(valueobjects.EntityTypeRecipe, byFields(nameOf, titleOf))
	r.Register(valueobjects.EntityTypeRecipeExecution, describeExecution)
	r.Register(valueobjects.EntityTypeTable, byFields(nameOf, titleOf))

	return r
}

// Register sets or replaces the describer for a type
func (r *EntityTypeRegistry) Register(t valueobjects.EntityType, d Describer) {
	r.describers[t] = d
}

// IsRegistered reports whether t has a describer
func (r *EntityTypeRegistry) IsRegistered(t valueobjects.EntityType) bool {
	_, ok := r.describers[t]
	return ok
}

// Describe returns the label and title for ref. Missing summaries, unknown
// types and empty fields fall back to "<type> <id>".
func (r *EntityTypeRegistry) Describe(ref valueobjects.EntityRef, summary *entities.EntitySummary) NodeDescription {
	fallback := FallbackLabel(ref)

	d, ok := r.describers[ref.Type]
	if !ok || summary == nil {
		return NodeDescription{Label: fallback, Title: fallback}
	}

	desc := d(summary)
	if desc.Label == "" {
		desc.Label = fallback
	}
	if desc.Title == "" {
		desc.Title = desc.Label
	}
	return desc
}

// FallbackLabel is the generic label used when no summary is available
func FallbackLabel(ref valueobjects.EntityRef) string {
	return fmt.Sprintf("%s %s", ref.Type, ref.ID)
}

type field func(*entities.EntitySummary) string

func titleOf(s *entities.EntitySummary) string { return s.Title }
func nameOf(s *entities.EntitySummary) string  { return s.Name }

// byFields uses the first non-empty field as both label and title
func byFields(fields ...field) Describer {
	return func(s *entities.EntitySummary) NodeDescription {
		for _, f := range fields {
			if v := strings.TrimSpace(f(s)); v != "" {
				return NodeDescription{Label: v, Title: v}
			}
		}
		return NodeDescription{}
	}
}

func describeHighlight(s *entities.EntitySummary) NodeDescription {
	text := strings.TrimSpace(s.Text)
	if text == "" {
		return NodeDescription{}
	}

	label := truncate(text, highlightLabelLength)
	title := text
	if s.Page > 0 {
		label = fmt.Sprintf("%s (p. %d)", label, s.Page)
		title = fmt.Sprintf("%s (p. %d)", title, s.Page)
	}
	return NodeDescription{Label: label, Title: title}
}

func describeExecution(s *entities.EntitySummary) NodeDescription {
	if v := strings.TrimSpace(s.Title); v != "" {
		return NodeDescription{Label: v, Title: v}
	}
	parent := strings.TrimSpace(s.ParentName)
	if parent == "" {
		parent = strings.TrimSpace(s.Name)
	}
	if parent == "" {
		return NodeDescription{}
	}
	label := parent + " (execution)"
	return NodeDescription{Label: label, Title: label}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "..."
}
