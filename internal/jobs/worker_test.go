package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloo-solutions/taskpilot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockEmbeddingJobRepository is a mock implementation of EmbeddingJobRepository
type MockEmbeddingJobRepository struct {
	mock.Mock
}

func (m *MockEmbeddingJobRepository) GetPendingJobs(ctx context.Context) ([]*domain.EmbeddingJob, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EmbeddingJob), args.Error(1)
}

func (m *MockEmbeddingJobRepository) UpdateJobStatus(ctx context.Context, jobID string, status domain.EmbeddingJobStatus, errMsg string) error {
	args := m.Called(ctx, jobID, status, errMsg)
	return args.Error(0)
}

func (m *MockEmbeddingJobRepository) IncrementRetries(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

// MockPageEmbeddingService is a mock implementation of PageEmbeddingService
type MockPageEmbeddingService struct {
	mock.Mock
}

func (m *MockPageEmbeddingService) EmbedPage(ctx context.Context, pageID string) error {
	args := m.Called(ctx, pageID)
	return args.Error(0)
}

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) EnqueueMissing(ctx context.Context, newID func() string) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type countingProcessor struct {
	calls atomic.Int32
}

func (p *countingProcessor) ProcessJobs(context.Context) error {
	p.calls.Add(1)
	return nil
}

func TestWorker_StartStop(t *testing.T) {
	processor := &countingProcessor{}
	worker := NewWorker(processor, 20*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	assert.Eventually(t, func() bool {
		return processor.calls.Load() > 0
	}, time.Second, 10*time.Millisecond)

	worker.Stop()
	wg.Wait()

	// A second Stop must not panic on the closed channel.
	worker.Stop()
}

func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 50*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	time.Sleep(120 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func TestWorker_LogsProcessorErrors(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(errors.New("database unavailable"))

	worker := NewWorker(mockProcessor, 20*time.Millisecond, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Start(ctx)

	assert.Eventually(t, func() bool {
		return logs.FilterMessage("error processing jobs").Len() > 0
	}, time.Second, 10*time.Millisecond)
	worker.Stop()
}

func TestEmbeddingWorker_ProcessJobs_NoPendingJobs(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockService := new(MockPageEmbeddingService)

	mockRepo.On("GetPendingJobs", mock.Anything).Return([]*domain.EmbeddingJob{}, nil)

	worker := NewEmbeddingWorker(mockRepo, mockService)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockService.AssertNotCalled(t, "EmbedPage", mock.Anything, mock.Anything)
}

func TestEmbeddingWorker_ProcessJobs_Success(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockService := new(MockPageEmbeddingService)

	job := &domain.EmbeddingJob{ID: "job-1", PageID: "page-1", Status: domain.EmbeddingJobStatusProcessing}

	mockRepo.On("GetPendingJobs", mock.Anything).Return([]*domain.EmbeddingJob{job}, nil)
	mockService.On("EmbedPage", mock.Anything, "page-1").Return(nil)
	mockRepo.On("UpdateJobStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusCompleted, "").Return(nil)

	worker := NewEmbeddingWorker(mockRepo, mockService)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockService.AssertExpectations(t)
}

func TestEmbeddingWorker_ProcessJobs_EnqueuesFirst(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockService := new(MockPageEmbeddingService)
	enqueuer := new(MockEnqueuer)

	enqueuer.On("EnqueueMissing", mock.Anything).Return(2, nil)
	mockRepo.On("GetPendingJobs", mock.Anything).Return([]*domain.EmbeddingJob{}, nil)

	worker := NewEmbeddingWorker(mockRepo, mockService, WithEnqueuer(enqueuer, func() string { return "id" }))
	require.NoError(t, worker.ProcessJobs(context.Background()))

	enqueuer.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestEmbeddingWorker_ProcessJobs_EnqueueError(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	enqueuer := new(MockEnqueuer)
	enqueuer.On("EnqueueMissing", mock.Anything).Return(0, errors.New("connection reset"))

	worker := NewEmbeddingWorker(mockRepo, new(MockPageEmbeddingService), WithEnqueuer(enqueuer, func() string { return "id" }))
	err := worker.ProcessJobs(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to enqueue pages")
	mockRepo.AssertNotCalled(t, "GetPendingJobs", mock.Anything)
}

func TestEmbeddingWorker_ProcessJobs_FailureWithRetry(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockService := new(MockPageEmbeddingService)

	job := &domain.EmbeddingJob{ID: "job-1", PageID: "page-1", Status: domain.EmbeddingJobStatusProcessing}

	mockRepo.On("GetPendingJobs", mock.Anything).Return([]*domain.EmbeddingJob{job}, nil)
	mockService.On("EmbedPage", mock.Anything, "page-1").Return(errors.New("embedding failed"))
	mockRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	mockRepo.On("UpdateJobStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusPending, mock.MatchedBy(func(msg string) bool {
		return msg == "retry 1: embedding failed"
	})).Return(nil)

	worker := NewEmbeddingWorker(mockRepo, mockService)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockService.AssertExpectations(t)
}

func TestEmbeddingWorker_ProcessJobs_MaxRetriesExceeded(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	mockRepo := new(MockEmbeddingJobRepository)
	mockService := new(MockPageEmbeddingService)

	job := &domain.EmbeddingJob{ID: "job-1", PageID: "page-1", Status: domain.EmbeddingJobStatusProcessing, Retries: 2}

	mockRepo.On("GetPendingJobs", mock.Anything).Return([]*domain.EmbeddingJob{job}, nil)
	mockService.On("EmbedPage", mock.Anything, "page-1").Return(errors.New("embedding failed"))
	mockRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	mockRepo.On("UpdateJobStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusFailed, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	worker := NewEmbeddingWorker(mockRepo, mockService, WithWorkerLogger(zap.New(core)))
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	assert.Equal(t, 1, logs.FilterMessage("job exceeded max retries").Len())
}

func TestEmbeddingWorker_ProcessJobs_MultipleJobs(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockService := new(MockPageEmbeddingService)

	jobs := []*domain.EmbeddingJob{
		{ID: "job-1", PageID: "page-1", Status: domain.EmbeddingJobStatusProcessing},
		{ID: "job-2", PageID: "page-2", Status: domain.EmbeddingJobStatusProcessing},
	}

	mockRepo.On("GetPendingJobs", mock.Anything).Return(jobs, nil)
	mockService.On("EmbedPage", mock.Anything, "page-1").Return(nil)
	mockRepo.On("UpdateJobStatus", mock.Anything, "job-1", domain.EmbeddingJobStatusCompleted, "").Return(nil)
	mockService.On("EmbedPage", mock.Anything, "page-2").Return(nil)
	mockRepo.On("UpdateJobStatus", mock.Anything, "job-2", domain.EmbeddingJobStatusCompleted, "").Return(nil)

	worker := NewEmbeddingWorker(mockRepo, mockService)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockService.AssertExpectations(t)
}

func TestEmbeddingWorker_ProcessJobs_RepositoryError(t *testing.T) {
	mockRepo := new(MockEmbeddingJobRepository)
	mockService := new(MockPageEmbeddingService)

	mockRepo.On("GetPendingJobs", mock.Anything).Return(nil, errors.New("database error"))

	worker := NewEmbeddingWorker(mockRepo, mockService)
	err := worker.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch pending jobs")
	mockRepo.AssertExpectations(t)
}
