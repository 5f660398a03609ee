package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordClassifier_Routing(t *testing.T) {
	classifier := NewKeywordClassifier()

	testCases := []struct {
		name     string
		text     string
		expected string
	}{
		{"delayed delivery", "the delivery was delayed by two hours", "Delivery issue"},
		{"rude rider wins over delivery bucket", "delivery guy was rude to me", "Delivery partner rude"},
		{"fees win over delivery bucket", "high delivery charges every single time", "High Charges/Fees"},
		{"cold food", "food was cold when it arrived", "Food stale"},
		{"app crash", "app crash on startup after the update", "App issues"},
		{"broken maps", "map location incorrect half the time", "Maps not working properly"},
		{"instamart hours", "instamart closed at midnight again", "Instamart should be open all night"},
		{"bolt delivery", "please bring back bolt", "Bring back 10 minute bolt delivery"},
		{"positive default", "great app, love it", "Positive Feedback"},
		{"case insensitive", "DELIVERY WAS LATE", "Delivery issue"},
		{"word boundary", "the plate was dirty", "Positive Feedback"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, classifier.Classify(tc.text))
		})
	}
}

func TestKeywordClassifier_Deterministic(t *testing.T) {
	classifier := NewKeywordClassifier()
	batch := []string{
		"the delivery was delayed by two hours",
		"rider was impolite",
		"love the selection",
		"payment failed twice",
	}

	first := make(map[string]int)
	second := make(map[string]int)
	for _, text := range batch {
		first[classifier.Classify(text)]++
	}
	for _, text := range batch {
		second[classifier.Classify(text)]++
	}
	assert.Equal(t, first, second)
}
