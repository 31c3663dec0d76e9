package admin

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/taskpilot/internal/api/handlers"
	"github.com/cloo-solutions/taskpilot/internal/assistant"
	"github.com/cloo-solutions/taskpilot/internal/memstore"
	"github.com/cloo-solutions/taskpilot/internal/retrieval"
	"github.com/cloo-solutions/taskpilot/internal/server"
)

const fixturePath = "../../memstore/testdata/workspace.yaml"

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("TASKPILOT_OPENAI_API_KEY", "")
	t.Setenv("TASKPILOT_S3_ENDPOINT", "")

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	err := cmd.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

func TestContextCmd_Fixture(t *testing.T) {
	stdout, stderr, err := execute(t, ContextCmd(), "--fixture", fixturePath, "--user", "u-alice", "what", "is", "overdue?")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Design billing schema")
	assert.Contains(t, stderr, "intents: ")
	assert.Contains(t, stderr, "overdue")
}

func TestContextCmd_JSON(t *testing.T) {
	stdout, _, err := execute(t, ContextCmd(), "--fixture", fixturePath, "--user", "u-nobody", "-o", "json", "what is overdue?")
	require.NoError(t, err)

	var resp handlers.ContextResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Contains(t, resp.Text, "NO ACCESSIBLE DATA")
	assert.Equal(t, "chars", resp.Unit)
}

func TestContextCmd_RequiresUser(t *testing.T) {
	_, _, err := execute(t, ContextCmd(), "--fixture", fixturePath, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user")
}

func TestAskCmd_WithoutGateway(t *testing.T) {
	_, _, err := execute(t, AskCmd(), "--fixture", fixturePath, "--user", "u-alice", "what is overdue?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation gateway not configured")
}

func TestAskCmd_InvalidHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, _, err := execute(t, AskCmd(), "--fixture", fixturePath, "--user", "u-alice", "--history", path, "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse history")
}

func TestChainCmd_Fixture(t *testing.T) {
	stdout, _, err := execute(t, ChainCmd(), "--fixture", fixturePath, "--user", "u-alice", "wi-api")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Dependency chain:", lines[0])
	assert.Contains(t, lines[1], "0. wi-api: Billing API endpoints")
	assert.Contains(t, lines[2], "1. wi-schema: Design billing schema")
	assert.Contains(t, lines[3], "Bottleneck: Design billing schema (wi-schema)")
	assert.Contains(t, lines[3], "blocked")
}

func TestChainCmd_OutOfScope(t *testing.T) {
	_, _, err := execute(t, ChainCmd(), "--fixture", fixturePath, "--user", "u-bob", "wi-study")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside the caller's scope")
}

func TestChainCmd_NegativeDepth(t *testing.T) {
	_, _, err := execute(t, ChainCmd(), "--fixture", fixturePath, "--user", "u-alice", "--max-depth", "-1", "wi-api")
	assert.Error(t, err)
}

func TestChainCmd_Server(t *testing.T) {
	store, err := memstore.Load(fixturePath)
	require.NoError(t, err)

	svc := assistant.NewService(assistant.ServiceDeps{
		Assembler: assistant.NewAssembler(retrieval.NewSet(retrieval.Deps{Store: store}).Registry()),
		Store:     store,
		Scopes:    store,
	})
	srv := httptest.NewServer(server.NewRouter(server.RouterConfig{
		APIToken:         "s3cret",
		AssistantHandler: handlers.NewAssistantHandler(svc),
	}))
	defer srv.Close()

	stdout, _, err := execute(t, ChainCmd(), "--server", srv.URL, "--token", "s3cret", "--user", "u-alice", "-o", "json", "wi-api")
	require.NoError(t, err)

	var resp handlers.ChainResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.Len(t, resp.Chain, 2)
	require.NotNil(t, resp.Bottleneck)
	assert.Equal(t, "wi-schema", resp.Bottleneck.ID)

	_, _, err = execute(t, ChainCmd(), "--server", srv.URL, "--token", "wrong", "--user", "u-alice", "wi-api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
