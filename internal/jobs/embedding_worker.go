package jobs

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/taskpilot/internal/domain"
	"github.com/cloo-solutions/taskpilot/internal/retrieval"
	"go.uber.org/zap"
)

const (
	// MaxRetries is the maximum number of attempts for a failed job
	MaxRetries = 3
)

// EmbeddingJobRepository claims and updates page embedding jobs
type EmbeddingJobRepository interface {
	GetPendingJobs(ctx context.Context) ([]*domain.EmbeddingJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status domain.EmbeddingJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, jobID string) error
}

// PageStore reads pages and stores their embeddings
type PageStore interface {
	DocPageByID(ctx context.Context, id string) (*domain.DocPage, error)
	SetPageEmbedding(ctx context.Context, pageID string, embedding []float32) error
}

// PageEmbedder computes and stores the embedding of one documentation page
type PageEmbedder struct {
	pages    PageStore
	embedder retrieval.Embedder
	bodies   retrieval.BodyLoader
}

// NewPageEmbedder creates a PageEmbedder. bodies may be nil when no page
// keeps its body in object storage.
func NewPageEmbedder(pages PageStore, embedder retrieval.Embedder, bodies retrieval.BodyLoader) *PageEmbedder {
	return &PageEmbedder{pages: pages, embedder: embedder, bodies: bodies}
}

// EmbedPage embeds the page's title, tags and body
func (e *PageEmbedder) EmbedPage(ctx context.Context, pageID string) error {
	page, err := e.pages.DocPageByID(ctx, pageID)
	if err != nil {
		return fmt.Errorf("failed to load page: %w", err)
	}

	body := page.Body
	if body == "" && page.BodyObjectKey != "" {
		if e.bodies == nil {
			return fmt.Errorf("page %s body is in object storage but no body loader is configured", pageID)
		}
		body, err = e.bodies.LoadBody(ctx, page.BodyObjectKey)
		if err != nil {
			return fmt.Errorf("failed to load page body: %w", err)
		}
	}

	embedding, err := e.embedder.GenerateEmbedding(ctx, page.EmbeddingText(body))
	if err != nil {
		return err
	}
	return e.pages.SetPageEmbedding(ctx, pageID, embedding)
}

// PageEmbeddingService embeds one page by ID
type PageEmbeddingService interface {
	EmbedPage(ctx context.Context, pageID string) error
}

// Enqueuer creates jobs for pages that still lack an embedding
type Enqueuer interface {
	EnqueueMissing(ctx context.Context, newID func() string) (int, error)
}

// EmbeddingWorker processes page embedding jobs
type EmbeddingWorker struct {
	repo     EmbeddingJobRepository
	service  PageEmbeddingService
	enqueuer Enqueuer
	newID    func() string
	logger   *zap.Logger
}

// EmbeddingWorkerOption configures an EmbeddingWorker
type EmbeddingWorkerOption func(*EmbeddingWorker)

// WithEnqueuer makes each run enqueue pages missing an embedding first
func WithEnqueuer(enqueuer Enqueuer, newID func() string) EmbeddingWorkerOption {
	return func(w *EmbeddingWorker) {
		w.enqueuer = enqueuer
		w.newID = newID
	}
}

// WithWorkerLogger sets the logger
func WithWorkerLogger(logger *zap.Logger) EmbeddingWorkerOption {
	return func(w *EmbeddingWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewEmbeddingWorker creates a new EmbeddingWorker instance
func NewEmbeddingWorker(repo EmbeddingJobRepository, service PageEmbeddingService, opts ...EmbeddingWorkerOption) *EmbeddingWorker {
	w := &EmbeddingWorker{
		repo:    repo,
		service: service,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ProcessJobs implements the JobProcessor interface
func (w *EmbeddingWorker) ProcessJobs(ctx context.Context) error {
	if w.enqueuer != nil {
		n, err := w.enqueuer.EnqueueMissing(ctx, w.newID)
		if err != nil {
			return fmt.Errorf("failed to enqueue pages: %w", err)
		}
		if n > 0 {
			w.logger.Info("enqueued pages for embedding", zap.Int("count", n))
		}
	}

	jobs, err := w.repo.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	w.logger.Info("processing embedding jobs", zap.Int("count", len(jobs)))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			w.logger.Error("error processing job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}

	return nil
}

func (w *EmbeddingWorker) processJob(ctx context.Context, job *domain.EmbeddingJob) error {
	if job.PageID == "" {
		return fmt.Errorf("job %s has no page_id", job.ID)
	}

	if err := w.service.EmbedPage(ctx, job.PageID); err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	w.logger.Debug("job completed", zap.String("job_id", job.ID), zap.String("page_id", job.PageID))
	return nil
}

// handleJobFailure requeues the job or marks it failed once MaxRetries is reached
func (w *EmbeddingWorker) handleJobFailure(ctx context.Context, job *domain.EmbeddingJob, jobErr error) error {
	w.logger.Warn("job failed", zap.String("job_id", job.ID), zap.String("page_id", job.PageID), zap.Error(jobErr))

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		w.logger.Warn("job exceeded max retries", zap.String("job_id", job.ID), zap.Int("max_retries", MaxRetries))
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.EmbeddingJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
