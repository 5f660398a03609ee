package categorizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
)

// DefaultPromptTemplate is used when no custom prompt is configured.
// {{CATEGORIES}} and {{REVIEWS}} are substituted per batch.
const DefaultPromptTemplate = `You are given app reviews that did not match any existing category.

Existing categories:
{{CATEGORIES}}

Reviews (JSON array):
{{REVIEWS}}

Group the reviews. Reuse an existing category name when one fits; invent a
short descriptive name only when none does. Never use the name "Other".
Reviews that are positive or carry no actionable issue belong in the
"other" list.

Respond with a single JSON object of this exact shape:
{"new_categories": [{"name": "<category name>", "reviews": ["<review text>", ...]}], "other": ["<review text>", ...]}

Copy review texts exactly as given.`

const systemPrompt = "You are a helpful assistant that categorizes app reviews."

// client is the subset of the OpenAI API the categorizer needs.
type client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMCategorizer groups review texts with a chat completion model. The
// model may reuse existing category names or mint new ones; texts it
// declines to place are assigned the default category.
type LLMCategorizer struct {
	client          client
	model           string
	promptTemplate  string
	defaultCategory string
	batchLimit      int
}

var _ ReviewCategorizer = (*LLMCategorizer)(nil)

// NewLLMCategorizer builds a categorizer on top of an OpenAI-compatible
// chat client. An empty promptTemplate selects DefaultPromptTemplate.
// batchLimit caps how many texts are sent per call; texts beyond the cap
// are left for the caller to default.
func NewLLMCategorizer(c client, model, promptTemplate, defaultCategory string, batchLimit int) (*LLMCategorizer, error) {
	if c == nil {
		return nil, fmt.Errorf("llm categorizer: client is required")
	}
	if model == "" {
		return nil, fmt.Errorf("llm categorizer: model is required")
	}
	if defaultCategory == "" {
		return nil, fmt.Errorf("llm categorizer: default category is required")
	}
	if promptTemplate == "" {
		promptTemplate = DefaultPromptTemplate
	}
	if batchLimit <= 0 {
		batchLimit = 50
	}
	return &LLMCategorizer{
		client:          c,
		model:           model,
		promptTemplate:  promptTemplate,
		defaultCategory: defaultCategory,
		batchLimit:      batchLimit,
	}, nil
}

type suggestedCategory struct {
	Name    string   `json:"name"`
	Reviews []string `json:"reviews"`
}

type suggestionResponse struct {
	NewCategories []suggestedCategory `json:"new_categories"`
	Other         []string            `json:"other"`
}

// Categorize sends up to batchLimit texts to the model and returns the
// assignments it could place. Texts the model skipped, altered beyond
// recognition, or that fell outside the batch cap are absent from the
// result. A parse failure is reported as ErrMalformedResponse so callers
// can default the batch instead of abandoning the run.
func (l *LLMCategorizer) Categorize(ctx context.Context, reviewTexts []string, existingCategories []string) (Assignment, error) {
	if len(reviewTexts) == 0 {
		return Assignment{}, nil
	}

	batch := reviewTexts
	if len(batch) > l.batchLimit {
		log.WithFields(log.Fields{
			"texts": len(reviewTexts),
			"limit": l.batchLimit,
		}).Warn("Truncating categorization batch")
		batch = batch[:l.batchLimit]
	}

	prompt, err := l.buildPrompt(batch, existingCategories)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llm categorizer: chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm categorizer: no completion choices returned")
	}

	parsed, err := parseSuggestions(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	sent := make(map[string]struct{}, len(batch))
	for _, text := range batch {
		sent[text] = struct{}{}
	}

	assignment := make(Assignment, len(batch))
	for _, cat := range parsed.NewCategories {
		name := NormalizeName(cat.Name, existingCategories)
		if name == "" || strings.EqualFold(name, "Other") {
			name = l.defaultCategory
		}
		for _, text := range cat.Reviews {
			if _, ok := sent[text]; !ok {
				log.WithField("category", name).Debug("Model returned a review text that was not sent")
				continue
			}
			assignment[text] = name
		}
	}
	for _, text := range parsed.Other {
		if _, ok := sent[text]; ok {
			assignment[text] = l.defaultCategory
		}
	}

	log.WithFields(log.Fields{
		"sent":     len(batch),
		"assigned": len(assignment),
	}).Debug("LLM categorization batch complete")
	return assignment, nil
}

func (l *LLMCategorizer) buildPrompt(texts, existingCategories []string) (string, error) {
	encoded, err := json.Marshal(texts)
	if err != nil {
		return "", fmt.Errorf("llm categorizer: encoding reviews: %w", err)
	}
	var names strings.Builder
	for _, name := range existingCategories {
		names.WriteString("- ")
		names.WriteString(name)
		names.WriteByte('\n')
	}
	prompt := strings.ReplaceAll(l.promptTemplate, "{{CATEGORIES}}", strings.TrimRight(names.String(), "\n"))
	prompt = strings.ReplaceAll(prompt, "{{REVIEWS}}", string(encoded))
	return prompt, nil
}

// parseSuggestions tolerates markdown code fences around the JSON body.
func parseSuggestions(content string) (*suggestionResponse, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
		content = strings.TrimSpace(content)
	}
	var parsed suggestionResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("llm categorizer: parsing response: %w: %v", ErrMalformedResponse, err)
	}
	return &parsed, nil
}
