package categorizer

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock OpenAI Client ---

type mockOpenAIClient struct {
	mockResponse openai.ChatCompletionResponse
	mockError    error
	requests     []openai.ChatCompletionRequest
}

func (m *mockOpenAIClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.requests = append(m.requests, req)
	if m.mockError != nil {
		return openai.ChatCompletionResponse{}, m.mockError
	}
	return m.mockResponse, nil
}

// --- End Mock OpenAI Client ---

func chatResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func newTestCategorizer(t *testing.T, mock *mockOpenAIClient, batchLimit int) *LLMCategorizer {
	t.Helper()
	cat, err := NewLLMCategorizer(mock, "gpt-test", "", "Positive Feedback", batchLimit)
	require.NoError(t, err)
	return cat
}

func TestLLMCategorizer_Categorize_Parsing(t *testing.T) {
	// 1. Valid JSON response proposing one new category plus an "other" bucket.
	mockClient := &mockOpenAIClient{
		mockResponse: chatResponse(`{"new_categories": [{"name": "Login Problems", "reviews": ["cannot log in at all"]}], "other": ["great app"]}`),
	}
	cat := newTestCategorizer(t, mockClient, 50)

	// 2. Call with both texts present in the input batch.
	result, err := cat.Categorize(context.Background(), []string{"cannot log in at all", "great app"}, []string{"App issues"})

	// 3. New category applies, "other" texts land in the default category.
	require.NoError(t, err)
	assert.Equal(t, "Login Problems", result["cannot log in at all"])
	assert.Equal(t, "Positive Feedback", result["great app"])
	assert.Len(t, result, 2)
}

func TestLLMCategorizer_Categorize_NameHygiene(t *testing.T) {
	testCases := []struct {
		name         string
		returnedName string
		expected     string
	}{
		{"existing spelling wins over casing", "app issues", "App issues"},
		{"surrounding whitespace trimmed", "  App issues  ", "App issues"},
		{"inner whitespace collapsed", "App   issues", "App issues"},
		{"other is never a category", "Other", "Positive Feedback"},
		{"blank name falls back to default", "   ", "Positive Feedback"},
		{"genuinely new name kept verbatim", "Refund Delays", "Refund Delays"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockClient := &mockOpenAIClient{
				mockResponse: chatResponse(`{"new_categories": [{"name": "` + tc.returnedName + `", "reviews": ["the app keeps crashing"]}], "other": []}`),
			}
			cat := newTestCategorizer(t, mockClient, 50)

			result, err := cat.Categorize(context.Background(), []string{"the app keeps crashing"}, []string{"App issues", "Delivery issue"})
			require.NoError(t, err)
			assert.Equal(t, tc.expected, result["the app keeps crashing"])
		})
	}
}

func TestLLMCategorizer_Categorize_FencedJSON(t *testing.T) {
	fenced := "```json\n{\"new_categories\": [], \"other\": [\"love it\"]}\n```"
	mockClient := &mockOpenAIClient{mockResponse: chatResponse(fenced)}
	cat := newTestCategorizer(t, mockClient, 50)

	result, err := cat.Categorize(context.Background(), []string{"love it"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Positive Feedback", result["love it"])
}

func TestLLMCategorizer_Categorize_InvalidJSON(t *testing.T) {
	mockClient := &mockOpenAIClient{mockResponse: chatResponse("This is just plain text, not JSON.")}
	cat := newTestCategorizer(t, mockClient, 50)

	_, err := cat.Categorize(context.Background(), []string{"anything"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse, "parse failures must be distinguishable from transport errors")
}

func TestLLMCategorizer_Categorize_APIError(t *testing.T) {
	mockErr := errors.New("simulated API error 429 Too Many Requests")
	mockClient := &mockOpenAIClient{mockError: mockErr}
	cat := newTestCategorizer(t, mockClient, 50)

	_, err := cat.Categorize(context.Background(), []string{"anything"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, mockErr, "returned error should wrap the original API error")
	assert.NotErrorIs(t, err, ErrMalformedResponse)
}

func TestLLMCategorizer_Categorize_EmptyResponse(t *testing.T) {
	mockClient := &mockOpenAIClient{mockResponse: openai.ChatCompletionResponse{}}
	cat := newTestCategorizer(t, mockClient, 50)

	_, err := cat.Categorize(context.Background(), []string{"anything"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no completion choices")
	assert.NotErrorIs(t, err, ErrMalformedResponse)
}

func TestLLMCategorizer_Categorize_BatchLimit(t *testing.T) {
	mockClient := &mockOpenAIClient{
		mockResponse: chatResponse(`{"new_categories": [], "other": ["first", "second"]}`),
	}
	cat := newTestCategorizer(t, mockClient, 2)

	result, err := cat.Categorize(context.Background(), []string{"first", "second", "third"}, nil)
	require.NoError(t, err)
	require.Len(t, mockClient.requests, 1)

	prompt := mockClient.requests[0].Messages[1].Content
	assert.Contains(t, prompt, "first")
	assert.Contains(t, prompt, "second")
	assert.NotContains(t, prompt, "third", "texts beyond the batch limit must not be sent")
	assert.NotContains(t, result, "third", "unsent texts are left for the caller")
}

func TestLLMCategorizer_Categorize_UnknownTextSkipped(t *testing.T) {
	mockClient := &mockOpenAIClient{
		mockResponse: chatResponse(`{"new_categories": [{"name": "Hallucinated", "reviews": ["never sent this"]}], "other": []}`),
	}
	cat := newTestCategorizer(t, mockClient, 50)

	result, err := cat.Categorize(context.Background(), []string{"real review"}, nil)
	require.NoError(t, err)
	assert.Empty(t, result, "texts the model invented must be ignored")
}

func TestLLMCategorizer_Categorize_EmptyInput(t *testing.T) {
	mockClient := &mockOpenAIClient{}
	cat := newTestCategorizer(t, mockClient, 50)

	result, err := cat.Categorize(context.Background(), nil, []string{"App issues"})
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.Empty(t, mockClient.requests, "no API call should be made for an empty batch")
}

func TestNormalizeName(t *testing.T) {
	existing := []string{"App issues", "High Charges/Fees"}

	assert.Equal(t, "App issues", NormalizeName("APP ISSUES", existing))
	assert.Equal(t, "App issues", NormalizeName(" app   issues ", existing))
	assert.Equal(t, "High Charges/Fees", NormalizeName("high charges/fees", existing))
	assert.Equal(t, "Slow Refunds", NormalizeName("Slow Refunds", existing))
	assert.Equal(t, "", NormalizeName("   ", existing))
}
