package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/taskpilot/internal/api"
	"github.com/cloo-solutions/taskpilot/internal/api/middleware"
	"github.com/cloo-solutions/taskpilot/internal/assistant"
	"github.com/cloo-solutions/taskpilot/internal/dependency"
	"github.com/cloo-solutions/taskpilot/internal/domain"
	"github.com/cloo-solutions/taskpilot/internal/intent"
)

type AssistantService interface {
	Context(ctx context.Context, userID, prompt string) (*assistant.Result, error)
	Ask(ctx context.Context, userID, prompt string, history []domain.ChatMessage) (*assistant.Answer, error)
	Chain(ctx context.Context, userID, itemID string, maxDepth int) (*assistant.ChainReport, error)
}

type AssistantHandler struct {
	svc AssistantService
}

func NewAssistantHandler(svc AssistantService) *AssistantHandler {
	return &AssistantHandler{svc: svc}
}

type ContextRequest struct {
	Prompt string `json:"prompt"`
}

type AskRequest struct {
	Prompt  string               `json:"prompt"`
	History []domain.ChatMessage `json:"history,omitempty"`
}

type ContextResponse struct {
	Text    string                   `json:"text"`
	Intents []string                 `json:"intents"`
	Blocks  []assistant.BlockSummary `json:"blocks"`
	Dropped []string                 `json:"dropped,omitempty"`
	Skipped []string                 `json:"skipped,omitempty"`
	Failed  []string                 `json:"failed,omitempty"`
	Used    int                      `json:"used"`
	Unit    string                   `json:"unit"`
}

type AskResponse struct {
	Answer  string   `json:"answer"`
	Intents []string `json:"intents"`
}

type ChainItemResponse struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Column   string   `json:"column,omitempty"`
	Assignee string   `json:"assignee"`
	Progress int      `json:"progress"`
	Blocked  bool     `json:"blocked"`
	Position int      `json:"position"`
	Score    int      `json:"score"`
	Reasons  []string `json:"reasons,omitempty"`
}

type ChainResponse struct {
	Chain      []*ChainItemResponse `json:"chain"`
	Bottleneck *ChainItemResponse   `json:"bottleneck,omitempty"`
}

func (h *AssistantHandler) Context(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Prompt) == "" {
		api.Error(w, http.StatusBadRequest, "prompt is required")
		return
	}

	result, err := h.svc.Context(r.Context(), userID, req.Prompt)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, NewContextResponse(result))
}

func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Prompt) == "" {
		api.Error(w, http.StatusBadRequest, "prompt is required")
		return
	}

	for _, msg := range req.History {
		if msg.Role != domain.ChatRoleUser && msg.Role != domain.ChatRoleAssistant {
			api.Error(w, http.StatusBadRequest, "history role must be user or assistant")
			return
		}
	}

	answer, err := h.svc.Ask(r.Context(), userID, req.Prompt, req.History)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := AskResponse{Answer: answer.Text, Intents: []string{}}
	if answer.Context != nil {
		resp.Intents = labelStrings(answer.Context.Intents)
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *AssistantHandler) Chain(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	itemID := chi.URLParam(r, "id")
	if itemID == "" {
		api.Error(w, http.StatusBadRequest, "work item id is required")
		return
	}

	maxDepth := 0
	if raw := r.URL.Query().Get("max_depth"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "max_depth must be a positive integer")
			return
		}
		maxDepth = parsed
	}

	report, err := h.svc.Chain(r.Context(), userID, itemID, maxDepth)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, NewChainResponse(report))
}

// NewContextResponse converts an assembly result to its wire form
func NewContextResponse(result *assistant.Result) ContextResponse {
	blocks := result.Blocks
	if blocks == nil {
		blocks = []assistant.BlockSummary{}
	}
	return ContextResponse{
		Text:    result.Text,
		Intents: labelStrings(result.Intents),
		Blocks:  blocks,
		Dropped: labelStrings(result.Dropped),
		Skipped: labelStrings(result.Skipped),
		Failed:  labelStrings(result.Failed),
		Used:    result.Used,
		Unit:    result.Unit,
	}
}

// NewChainResponse converts a chain report to its wire form
func NewChainResponse(report *assistant.ChainReport) ChainResponse {
	resp := ChainResponse{Chain: make([]*ChainItemResponse, 0, len(report.Scores))}
	for _, score := range report.Scores {
		resp.Chain = append(resp.Chain, scoreItem(score))
	}
	if report.Bottleneck != nil {
		resp.Bottleneck = scoreItem(*report.Bottleneck)
	}
	return resp
}

func scoreItem(score dependency.Score) *ChainItemResponse {
	entry := chainItem(score.Item)
	entry.Position = score.Position
	entry.Score = score.Score
	entry.Reasons = score.Reasons
	return entry
}

func chainItem(item *domain.WorkItem) *ChainItemResponse {
	return &ChainItemResponse{
		ID:       item.ID,
		Title:    item.Title,
		Column:   item.Column,
		Assignee: item.Assignee(),
		Progress: item.Progress,
		Blocked:  item.Blocked,
	}
}

func labelStrings(labels []intent.Label) []string {
	out := make([]string, len(labels))
	for i, label := range labels {
		out[i] = string(label)
	}
	return out
}
