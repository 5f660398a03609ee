package services

import (
	"regexp"

	"insitegent/internal/store/categories"
)

// keywordTable routes review text to a category by trigger phrase. Rules
// are checked in declaration order and the first match wins, so specific
// complaints (a rude rider, high fees) are listed before the broad
// delivery bucket that would otherwise swallow them.
var keywordTable = []struct {
	category string
	triggers []string
}{
	{"Delivery partner rude", []string{"rude", "impolite", "misbehaved", "behaved badly"}},
	{"Food stale", []string{"stale", "soggy", "cold", "salty", "not fresh"}},
	{"Maps not working properly", []string{"map", "maps", "location", "gps", "directions", "tracking"}},
	{"Instamart should be open all night", []string{"instamart"}},
	{"Bring back 10 minute bolt delivery", []string{"bolt", "10 minute", "10-min", "ten minute"}},
	{"App issues", []string{"crash", "crashes", "crashing", "bug", "buggy", "login", "otp", "payment failed", "not working"}},
	{"High Charges/Fees", []string{"charge", "charges", "fee", "fees", "expensive", "overcharged", "costly", "gst", "surge"}},
	{"Delivery issue", []string{"delay", "delayed", "late", "delivery", "rider", "wrong address"}},
}

type keywordRule struct {
	category string
	patterns []*regexp.Regexp
}

// KeywordClassifier categorizes review text by trigger phrases alone. It
// needs no network access and never creates categories, which makes it the
// path of last resort when embedding or LLM providers are down.
type KeywordClassifier struct {
	rules           []keywordRule
	defaultCategory string
}

// NewKeywordClassifier compiles the trigger table once up front.
func NewKeywordClassifier() *KeywordClassifier {
	rules := make([]keywordRule, 0, len(keywordTable))
	for _, row := range keywordTable {
		rule := keywordRule{category: row.category}
		for _, trigger := range row.triggers {
			rule.patterns = append(rule.patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(trigger)+`\b`))
		}
		rules = append(rules, rule)
	}
	return &KeywordClassifier{
		rules:           rules,
		defaultCategory: categories.DefaultCategory,
	}
}

// Classify returns the first category whose triggers match the text, or
// the positive default when nothing matches.
func (k *KeywordClassifier) Classify(text string) string {
	for _, rule := range k.rules {
		for _, pattern := range rule.patterns {
			if pattern.MatchString(text) {
				return rule.category
			}
		}
	}
	return k.defaultCategory
}
