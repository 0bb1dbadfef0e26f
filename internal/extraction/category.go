package extraction

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CategoryRule maps a category name to the merchant keywords that select it
type CategoryRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// DefaultCategoryRules are checked in order; the first rule with a keyword hit wins
var DefaultCategoryRules = []CategoryRule{
	{Name: "Food & Dining", Keywords: []string{"starbucks", "mcdonald", "restaurant", "cafe"}},
	{Name: "Shopping", Keywords: []string{"walmart", "target", "amazon", "store"}},
	{Name: "Transportation", Keywords: []string{"shell", "chevron", "gas", "fuel"}},
	{Name: "Healthcare", Keywords: []string{"cvs", "pharmacy", "walgreens", "medical"}},
	{Name: "Groceries", Keywords: []string{"safeway", "costco", "market", "grocery"}},
}

type categoryRulesFile struct {
	Categories []CategoryRule `yaml:"categories"`
}

// LoadCategoryRules reads an ordered rule list from a YAML file of the form
//
//	categories:
//	  - name: Groceries
//	    keywords: [market, grocery]
func LoadCategoryRules(path string) ([]CategoryRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category rules: %w", err)
	}

	var file categoryRulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing category rules: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, errors.New("category rules file defines no categories")
	}
	for i, rule := range file.Categories {
		if strings.TrimSpace(rule.Name) == "" {
			return nil, fmt.Errorf("category rule %d has no name", i)
		}
		if len(rule.Keywords) == 0 {
			return nil, fmt.Errorf("category %q has no keywords", rule.Name)
		}
	}
	return file.Categories, nil
}

// CategoryClassifier assigns a spending category from the merchant name alone
type CategoryClassifier struct {
	rules []CategoryRule
}

// NewCategoryClassifier creates a classifier; nil rules means DefaultCategoryRules
func NewCategoryClassifier(rules []CategoryRule) *CategoryClassifier {
	if rules == nil {
		rules = DefaultCategoryRules
	}
	normalized := make([]CategoryRule, len(rules))
	for i, rule := range rules {
		keywords := make([]string, 0, len(rule.Keywords))
		for _, k := range rule.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}
		normalized[i] = CategoryRule{Name: rule.Name, Keywords: keywords}
	}
	return &CategoryClassifier{rules: normalized}
}

// Classify returns the category for a merchant, or nil when there is no match
func (c *CategoryClassifier) Classify(merchant *string) *string {
	if merchant == nil {
		return nil
	}
	name := strings.ToLower(strings.TrimSpace(*merchant))
	if name == "" {
		return nil
	}

	for _, rule := range c.rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(name, keyword) {
				category := rule.Name
				return &category
			}
		}
	}
	return nil
}
