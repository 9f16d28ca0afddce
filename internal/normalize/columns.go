package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ColumnRule resolves one logical field to a concrete header label.
// Resolution order: the first Exact label present in the header, then the
// first header containing any Marker (diacritic, case and spacing
// insensitive), then Default. Default may not exist in the header, in which
// case every value of the field reads as empty.
type ColumnRule struct {
	Field   string   `mapstructure:"field" yaml:"field"`
	Exact   []string `mapstructure:"exact" yaml:"exact"`
	Markers []string `mapstructure:"markers" yaml:"markers"`
	Default string   `mapstructure:"default" yaml:"default"`
}

// ColumnMatch records how a field was resolved.
type ColumnMatch struct {
	Label string
	Via   MatchKind
}

type MatchKind string

const (
	MatchExact   MatchKind = "exact"
	MatchMarker  MatchKind = "marker"
	MatchDefault MatchKind = "default"
)

// ColumnMap maps logical field names to resolved header labels.
type ColumnMap map[string]ColumnMatch

// Label returns the resolved label for field ("" if the field has no rule).
func (m ColumnMap) Label(field string) string {
	return m[field].Label
}

// Degraded lists fields that fell back to their default label.
func (m ColumnMap) Degraded() []string {
	var fields []string
	for field, match := range m {
		if match.Via == MatchDefault {
			fields = append(fields, field)
		}
	}
	return fields
}

// ResolveColumns applies rules to a header row.
func ResolveColumns(header []string, rules []ColumnRule) ColumnMap {
	present := make(map[string]string, len(header))
	folded := make([]string, len(header))
	for i, h := range header {
		trimmed := strings.TrimSpace(h)
		if _, ok := present[trimmed]; !ok {
			present[trimmed] = h
		}
		folded[i] = FoldLabel(h)
	}

	result := make(ColumnMap, len(rules))
	for _, rule := range rules {
		result[rule.Field] = resolveRule(rule, header, present, folded)
	}
	return result
}

func resolveRule(rule ColumnRule, header []string, present map[string]string, folded []string) ColumnMatch {
	for _, label := range rule.Exact {
		if original, ok := present[strings.TrimSpace(label)]; ok {
			return ColumnMatch{Label: original, Via: MatchExact}
		}
	}

	for i, h := range folded {
		for _, marker := range rule.Markers {
			m := FoldLabel(marker)
			if m != "" && strings.Contains(h, m) {
				return ColumnMatch{Label: header[i], Via: MatchMarker}
			}
		}
	}

	return ColumnMatch{Label: rule.Default, Via: MatchDefault}
}

// Hebrew geresh/gershayim and typographic quotes collapse to ASCII.
var quoteReplacer = strings.NewReplacer(
	"״", `"`, "׳", "'",
	"“", `"`, "”", `"`, "‘", "'", "’", "'",
)

// FoldLabel lowercases a header, strips combining marks (niqqud, accents),
// normalizes quote variants and collapses whitespace.
func FoldLabel(label string) string {
	// Chained transformers carry state, so each call gets its own.
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(folder, label)
	if err != nil {
		s = label
	}
	s = quoteReplacer.Replace(s)
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
