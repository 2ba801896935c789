package processor

import (
	"fmt"
	"os"
	"sort"

	"github.com/ZaguanLabs/langsys"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"
)

// SelectorRule assigns a category to the elements a selector matches.
type SelectorRule struct {
	Selector string
	Category string
	// Override lets the rule win over explicit category attributes and
	// inherited categories.
	Override bool
}

// SelectorConfig is the value side of a selector rules file entry. A bare
// string is shorthand for {category: value, overrideParentElementCategory: false}.
type SelectorConfig struct {
	Category string `yaml:"category" json:"category"`
	Override bool   `yaml:"overrideParentElementCategory" json:"overrideParentElementCategory"`
}

// UnmarshalYAML accepts either a category string or a mapping.
func (c *SelectorConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		c.Category = value.Value
		c.Override = false
		return nil
	}
	var raw struct {
		Category string `yaml:"category"`
		Override *bool  `yaml:"overrideParentElementCategory"`
		Short    *bool  `yaml:"override"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.Category = raw.Category
	switch {
	case raw.Override != nil:
		c.Override = *raw.Override
	case raw.Short != nil:
		c.Override = *raw.Short
	}
	return nil
}

// SelectorRules is an ordered list of rules. Order is the tie-break within
// each priority tier.
type SelectorRules []SelectorRule

// UnmarshalYAML decodes a mapping of selector to SelectorConfig, keeping the
// declaration order of the mapping.
func (r *SelectorRules) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*r = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("selector rules: expected a mapping, got %s", kindName(value.Kind))
	}
	rules := make(SelectorRules, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var cfg SelectorConfig
		if err := value.Content[i+1].Decode(&cfg); err != nil {
			return fmt.Errorf("selector rules: %q: %w", value.Content[i].Value, err)
		}
		rules = append(rules, SelectorRule{
			Selector: value.Content[i].Value,
			Category: cfg.Category,
			Override: cfg.Override,
		})
	}
	*r = rules
	return nil
}

// UnmarshalJSON decodes the same shape as UnmarshalYAML. JSON objects are
// read through the YAML decoder so their key order survives.
func (r *SelectorRules) UnmarshalJSON(data []byte) error {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	if len(node.Content) == 0 {
		*r = nil
		return nil
	}
	return r.UnmarshalYAML(node.Content[0])
}

// ParseSelectorRules decodes a YAML or JSON rules document.
func ParseSelectorRules(data []byte) (SelectorRules, error) {
	var rules SelectorRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// LoadSelectorRules reads a YAML or JSON rules file.
func LoadSelectorRules(path string) (SelectorRules, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("reading selector rules: %w", err)
	}
	return ParseSelectorRules(data)
}

// RulesFromMap builds rules from a Go map. Go maps are unordered, so rules are
// sorted by selector to keep matching deterministic.
func RulesFromMap(m map[string]SelectorConfig) SelectorRules {
	selectors := make([]string, 0, len(m))
	for s := range m {
		selectors = append(selectors, s)
	}
	sort.Strings(selectors)

	rules := make(SelectorRules, 0, len(m))
	for _, s := range selectors {
		rules = append(rules, SelectorRule{Selector: s, Category: m[s].Category, Override: m[s].Override})
	}
	return rules
}

// SelectorMatch is the result of matching an element.
type SelectorMatch struct {
	Selector string
	Category string
	Override bool
}

type compiledRule struct {
	rule    SelectorRule
	matcher cascadia.Matcher
}

// SelectorMatcher resolves element categories from selector rules. Override
// rules are always tested before normal rules; within a tier the first
// declared match wins.
type SelectorMatcher struct {
	overrideRules []compiledRule
	normalRules   []compiledRule
}

// CompileSelector parses selector and compiles it into a tree predicate.
func CompileSelector(selector string) (cascadia.Matcher, error) {
	group, err := ParseSelector(selector)
	if err != nil {
		return nil, err
	}
	compiled, err := cascadia.ParseGroup(group.String())
	if err != nil {
		return nil, &langsys.SelectorError{Selector: selector, Message: err.Error()}
	}
	return compiled, nil
}

// NewSelectorMatcher compiles rules. Any malformed selector fails the whole
// construction with a *langsys.SelectorError.
func NewSelectorMatcher(rules SelectorRules) (*SelectorMatcher, error) {
	m := &SelectorMatcher{}
	for _, rule := range rules {
		matcher, err := CompileSelector(rule.Selector)
		if err != nil {
			return nil, err
		}
		if rule.Category == "" {
			rule.Category = langsys.UncategorizedCategory
		}
		c := compiledRule{rule: rule, matcher: matcher}
		if rule.Override {
			m.overrideRules = append(m.overrideRules, c)
		} else {
			m.normalRules = append(m.normalRules, c)
		}
	}
	return m, nil
}

// Match returns the first matching override rule, else the first matching
// normal rule. A nil matcher never matches.
func (m *SelectorMatcher) Match(n *html.Node) (SelectorMatch, bool) {
	if m == nil || !isElement(n) {
		return SelectorMatch{}, false
	}
	for _, tier := range [][]compiledRule{m.overrideRules, m.normalRules} {
		for _, c := range tier {
			if c.matcher.Match(n) {
				return SelectorMatch{
					Selector: c.rule.Selector,
					Category: c.rule.Category,
					Override: c.rule.Override,
				}, true
			}
		}
	}
	return SelectorMatch{}, false
}

// Len returns the number of compiled rules.
func (m *SelectorMatcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.overrideRules) + len(m.normalRules)
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
