package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/taskpilot/internal/domain"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOpenAIAPI is a mock for the OpenAI API
type MockOpenAIAPI struct {
	mock.Mock
}

func (m *MockOpenAIAPI) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockOpenAIAPI) CreateChatCompletion(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

func TestClient_GenerateEmbedding_Success(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	text := "Release checklist for the platform workspace."
	expectedEmbedding := make([]float32, 1536)
	for i := range expectedEmbedding {
		expectedEmbedding[i] = float32(i) * 0.001
	}

	mockAPI.On("CreateEmbeddings", ctx, text).Return(expectedEmbedding, nil)

	embedding, err := client.GenerateEmbedding(ctx, text)

	assert.NoError(t, err)
	assert.Len(t, embedding, 1536)
	assert.Equal(t, expectedEmbedding, embedding)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_EmptyText(t *testing.T) {
	client := NewClient("")

	embedding, err := client.GenerateEmbedding(context.Background(), "  ")

	assert.Nil(t, embedding)
	assert.Equal(t, ErrEmptyText, err)
}

func TestClient_GenerateEmbedding_APIError(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, "Test text").Return(nil, errors.New("API rate limit exceeded"))

	embedding, err := client.GenerateEmbedding(ctx, "Test text")

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.Contains(t, err.Error(), "failed to create embedding")
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_WrongDimensions(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI, dimensions: DefaultEmbeddingDimensions}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, "Test text").Return(make([]float32, 512), nil)

	embedding, err := client.GenerateEmbedding(ctx, "Test text")

	assert.Nil(t, embedding)
	assert.ErrorIs(t, err, ErrWrongDimensions)
	mockAPI.AssertExpectations(t)
}

func TestClient_Generate_BuildsConversation(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	history := []domain.ChatMessage{
		{Role: domain.ChatRoleUser, Content: "what is overdue?"},
		{Role: domain.ChatRoleAssistant, Content: "Two items are overdue."},
	}
	expected := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "CONTEXT"},
		{Role: openai.ChatMessageRoleUser, Content: "what is overdue?"},
		{Role: openai.ChatMessageRoleAssistant, Content: "Two items are overdue."},
		{Role: openai.ChatMessageRoleUser, Content: "which one is riskier?"},
	}
	mockAPI.On("CreateChatCompletion", ctx, expected).Return("The billing migration.", nil)

	answer, err := client.Generate(ctx, "CONTEXT", history, "which one is riskier?")

	require.NoError(t, err)
	assert.Equal(t, "The billing migration.", answer)
	mockAPI.AssertExpectations(t)
}

func TestClient_Generate_NoSystem(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	expected := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: "hello"},
	}
	mockAPI.On("CreateChatCompletion", ctx, expected).Return("hi", nil)

	answer, err := client.Generate(ctx, "", nil, "hello")

	require.NoError(t, err)
	assert.Equal(t, "hi", answer)
}

func TestClient_Generate_EmptyPrompt(t *testing.T) {
	client := &Client{api: new(MockOpenAIAPI)}

	_, err := client.Generate(context.Background(), "CONTEXT", nil, "")

	assert.Equal(t, ErrEmptyText, err)
}

func TestClient_Generate_APIError(t *testing.T) {
	mockAPI := new(MockOpenAIAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	mockAPI.On("CreateChatCompletion", ctx, mock.Anything).Return("", errors.New("service unavailable"))

	_, err := client.Generate(ctx, "CONTEXT", nil, "status?")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate answer")
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key")

	assert.NotNil(t, client)
	assert.NotNil(t, client.api)
	assert.Equal(t, DefaultEmbeddingDimensions, client.dimensions)
}
