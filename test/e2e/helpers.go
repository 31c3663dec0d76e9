//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/taskpilot/internal/api/handlers"
	"github.com/cloo-solutions/taskpilot/internal/api/middleware"
	"github.com/cloo-solutions/taskpilot/internal/assistant"
	"github.com/cloo-solutions/taskpilot/internal/domain"
	"github.com/cloo-solutions/taskpilot/internal/memstore"
	"github.com/cloo-solutions/taskpilot/internal/repository"
	"github.com/cloo-solutions/taskpilot/internal/retrieval"
	"github.com/cloo-solutions/taskpilot/internal/server"
	"github.com/cloo-solutions/taskpilot/internal/storage"
	"github.com/cloo-solutions/taskpilot/internal/testutil"
)

const (
	apiToken    = "e2e-token"
	fixturePath = "../../internal/memstore/testdata/workspace.yaml"

	runbookKey  = "docs/p-runbook.md"
	runbookBody = "Page the on-call engineer, open an incident channel and post status updates every 30 minutes."
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	Store        *repository.Store
	S3Client     *storage.S3Client
	Embedder     *fakeEmbedder
	ServerURL    string
	ServerCloser func()
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv starts PostgreSQL and RustFS, imports the workspace fixture
// plus a page whose body lives in object storage, and starts the API server.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSAccessKey,
		SecretAccessKey: testutil.RustFSSecretKey,
		Bucket:          "taskpilot-e2e",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}
	if err := s3Client.PutBody(ctx, runbookKey, runbookBody); err != nil {
		t.Fatalf("failed to upload page body: %v", err)
	}

	fixture, err := memstore.Load(fixturePath)
	if err != nil {
		t.Fatalf("failed to load fixture: %v", err)
	}
	fixture.AddPage(domain.DocPage{
		ID:            "p-runbook",
		TenantID:      "t-acme",
		Title:         "Incident Runbook",
		Category:      "guide",
		Tags:          []string{"incident", "on-call"},
		Published:     true,
		BodyObjectKey: runbookKey,
		UpdatedAt:     time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
	})
	if _, err := repository.NewTxRunner(pool).Import(ctx, fixture.Snapshot()); err != nil {
		t.Fatalf("failed to import fixture: %v", err)
	}

	store := repository.NewStore(pool)
	embedder := &fakeEmbedder{}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, store, s3Client, embedder, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		Store:        store,
		S3Client:     s3Client,
		Embedder:     embedder,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinary builds taskpilotd
func (e *E2ETestEnv) BuildBinary() {
	tmpDir, err := os.MkdirTemp("", "taskpilot-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "taskpilotd"), "./cmd/taskpilotd")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build taskpilotd: %v\n%s", err, out)
	}
}

// RunTaskpilotd runs the taskpilotd binary with the API token in its environment
func (e *E2ETestEnv) RunTaskpilotd(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "taskpilotd"), args...)
	cmd.Env = append(os.Environ(), fmt.Sprintf("TASKPILOT_API_TOKEN=%s", apiToken))
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// HTTPError is a non-2xx response
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// Get performs a GET request as userID
func (e *E2ETestEnv) Get(path, userID string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, userID)
}

// Post performs a POST request as userID
func (e *E2ETestEnv) Post(path string, body interface{}, userID string) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, userID)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, userID string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+apiToken)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(middleware.UserHeader, userID)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &HTTPError{Status: resp.StatusCode, Message: string(respBody)}
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, &HTTPError{Status: resp.StatusCode, Message: apiResp.Error}
	}

	return &apiResp, nil
}

// fakeEmbedder returns the same unit vector for every text and records inputs
type fakeEmbedder struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()

	v := make([]float32, 1536)
	v[0] = 1
	return v, nil
}

func (f *fakeEmbedder) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

// startServer starts the HTTP server over the PostgreSQL store
func startServer(t *testing.T, store *repository.Store, bodies *storage.S3Client, embedder *fakeEmbedder, port int) (string, func()) {
	set := retrieval.NewSet(retrieval.Deps{
		Store:  store,
		Bodies: bodies,
		Docs:   retrieval.NewSemanticSearcher(embedder, store),
	})
	svc := assistant.NewService(assistant.ServiceDeps{
		Assembler: assistant.NewAssembler(set.Registry()),
		Store:     store,
		Scopes:    store,
	})

	router := server.NewRouter(server.RouterConfig{
		APIToken:         apiToken,
		AssistantHandler: handlers.NewAssistantHandler(svc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
