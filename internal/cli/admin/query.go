package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/taskpilot/internal/api/handlers"
	"github.com/cloo-solutions/taskpilot/internal/cli/client"
	"github.com/cloo-solutions/taskpilot/internal/domain"
)

// ContextCmd returns the context command
func ContextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context <prompt>",
		Short: "Assemble the context for a prompt",
		Long:  "Classify a prompt, run the matching retrievers and print the assembled context block",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runContext,
	}

	addQueryFlags(cmd)

	return cmd
}

// AskCmd returns the ask command
func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Ask the assistant a question",
		Long:  "Assemble context for a prompt and generate an answer with the configured model",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	addQueryFlags(cmd)
	cmd.Flags().String("history", "", "JSON file with earlier turns ([{\"role\":\"user\",\"content\":\"...\"}])")

	return cmd
}

// ChainCmd returns the chain command
func ChainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain <work-item-id>",
		Short: "Show the dependency chain of a work item",
		Long:  "Walk the predecessors of a work item and report the bottleneck with its reasons",
		Args:  cobra.ExactArgs(1),
		RunE:  runChain,
	}

	addQueryFlags(cmd)
	cmd.Flags().Int("max-depth", 0, "Maximum chain depth (0 uses TASKPILOT_MAX_CHAIN_DEPTH)")

	return cmd
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("user", "u", "", "User the request is made for")
	cmd.Flags().String("server", "", "Query a running taskpilotd at this URL instead of the local store")
	cmd.Flags().String("token", "", "Bearer token for --server (defaults to TASKPILOT_API_TOKEN)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	addFixtureFlag(cmd)
	_ = cmd.MarkFlagRequired("user")
}

// queryBackend answers queries either locally or through a running daemon
type queryBackend interface {
	Context(ctx context.Context, prompt string) (*handlers.ContextResponse, error)
	Ask(ctx context.Context, prompt string, history []domain.ChatMessage) (*handlers.AskResponse, error)
	Chain(ctx context.Context, itemID string, maxDepth int) (*handlers.ChainResponse, error)
}

// localBackend runs the assistant in-process
type localBackend struct {
	rt     *runtime
	userID string
}

func (b *localBackend) Context(ctx context.Context, prompt string) (*handlers.ContextResponse, error) {
	result, err := b.rt.service().Context(ctx, b.userID, prompt)
	if err != nil {
		return nil, err
	}
	resp := handlers.NewContextResponse(result)
	return &resp, nil
}

func (b *localBackend) Ask(ctx context.Context, prompt string, history []domain.ChatMessage) (*handlers.AskResponse, error) {
	answer, err := b.rt.service().Ask(ctx, b.userID, prompt, history)
	if err != nil {
		return nil, err
	}
	resp := &handlers.AskResponse{Answer: answer.Text, Intents: []string{}}
	if answer.Context != nil {
		resp.Intents = handlers.NewContextResponse(answer.Context).Intents
	}
	return resp, nil
}

func (b *localBackend) Chain(ctx context.Context, itemID string, maxDepth int) (*handlers.ChainResponse, error) {
	report, err := b.rt.service().Chain(ctx, b.userID, itemID, maxDepth)
	if err != nil {
		return nil, err
	}
	resp := handlers.NewChainResponse(report)
	return &resp, nil
}

func openBackend(ctx context.Context, cmd *cobra.Command) (queryBackend, func(), error) {
	userID, _ := cmd.Flags().GetString("user")
	server, _ := cmd.Flags().GetString("server")

	if server != "" {
		token, _ := cmd.Flags().GetString("token")
		if token == "" {
			token = os.Getenv("TASKPILOT_API_TOKEN")
		}
		c, err := client.NewAPIClient(server, token, userID)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}

	fixture, _ := cmd.Flags().GetString("fixture")
	rt, err := openRuntime(ctx, fixture)
	if err != nil {
		return nil, nil, err
	}
	return &localBackend{rt: rt, userID: userID}, rt.Close, nil
}

func runContext(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	backend, closeFn, err := openBackend(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	resp, err := backend.Context(ctx, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("failed to assemble context: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputFormat(cmd) == "json" {
		return writeJSON(out, resp)
	}

	fmt.Fprintln(out, resp.Text)
	fmt.Fprintln(cmd.ErrOrStderr(), contextSummary(resp))
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	history, err := readHistory(cmd)
	if err != nil {
		return err
	}

	backend, closeFn, err := openBackend(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	resp, err := backend.Ask(ctx, strings.Join(args, " "), history)
	if err != nil {
		return fmt.Errorf("failed to ask: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputFormat(cmd) == "json" {
		return writeJSON(out, resp)
	}
	fmt.Fprintln(out, resp.Answer)
	return nil
}

func runChain(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	maxDepth, _ := cmd.Flags().GetInt("max-depth")
	if maxDepth < 0 {
		return fmt.Errorf("--max-depth must not be negative")
	}

	backend, closeFn, err := openBackend(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	resp, err := backend.Chain(ctx, args[0], maxDepth)
	if err != nil {
		return fmt.Errorf("failed to build chain: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputFormat(cmd) == "json" {
		return writeJSON(out, resp)
	}

	fmt.Fprintln(out, "Dependency chain:")
	for _, item := range resp.Chain {
		fmt.Fprintf(out, "  %d. %s: %s [%s] score %d\n", item.Position, item.ID, item.Title, item.Column, item.Score)
	}
	if resp.Bottleneck != nil {
		fmt.Fprintf(out, "Bottleneck: %s (%s), score %d: %s\n",
			resp.Bottleneck.Title, resp.Bottleneck.ID, resp.Bottleneck.Score, strings.Join(resp.Bottleneck.Reasons, ", "))
	}
	return nil
}

func contextSummary(resp *handlers.ContextResponse) string {
	intents := "none"
	if len(resp.Intents) > 0 {
		intents = strings.Join(resp.Intents, ", ")
	}
	summary := fmt.Sprintf("intents: %s; %d blocks, %d %s", intents, len(resp.Blocks), resp.Used, resp.Unit)
	if len(resp.Dropped) > 0 {
		summary += "; dropped: " + strings.Join(resp.Dropped, ", ")
	}
	if len(resp.Failed) > 0 {
		summary += "; failed: " + strings.Join(resp.Failed, ", ")
	}
	return summary
}

func readHistory(cmd *cobra.Command) ([]domain.ChatMessage, error) {
	path, _ := cmd.Flags().GetString("history")
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	var history []domain.ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	return history, nil
}

func outputFormat(cmd *cobra.Command) string {
	format, _ := cmd.Flags().GetString("output")
	return format
}

func writeJSON(w io.Writer, v interface{}) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(jsonBytes))
	return err
}
