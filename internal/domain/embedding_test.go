package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbeddingJob(t *testing.T) {
	now := time.Now()
	job := NewEmbeddingJob("job1", "p1", now)

	assert.Equal(t, "job1", job.ID)
	assert.Equal(t, "p1", job.PageID)
	assert.Equal(t, EmbeddingJobStatusPending, job.Status)
	assert.Equal(t, int32(0), job.Retries)
	assert.Equal(t, now, job.CreatedAt)
	assert.Nil(t, job.ProcessedAt)
}

func TestValidateEmbeddingJob(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		job     *EmbeddingJob
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid job",
			job:     &EmbeddingJob{ID: "job1", PageID: "p1", Status: EmbeddingJobStatusPending, CreatedAt: now},
			wantErr: false,
		},
		{
			name:    "nil job",
			job:     nil,
			wantErr: true,
			errMsg:  "nil",
		},
		{
			name:    "missing ID",
			job:     &EmbeddingJob{PageID: "p1", Status: EmbeddingJobStatusPending, CreatedAt: now},
			wantErr: true,
			errMsg:  "ID",
		},
		{
			name:    "missing PageID",
			job:     &EmbeddingJob{ID: "job1", Status: EmbeddingJobStatusPending, CreatedAt: now},
			wantErr: true,
			errMsg:  "PageID",
		},
		{
			name:    "invalid Status",
			job:     &EmbeddingJob{ID: "job1", PageID: "p1", Status: EmbeddingJobStatus("invalid"), CreatedAt: now},
			wantErr: true,
			errMsg:  "Status",
		},
		{
			name:    "negative Retries",
			job:     &EmbeddingJob{ID: "job1", PageID: "p1", Status: EmbeddingJobStatusPending, Retries: -1, CreatedAt: now},
			wantErr: true,
			errMsg:  "Retries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmbeddingJob(tt.job)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestDocPage_EmbeddingText(t *testing.T) {
	p := &DocPage{Title: "Deploy runbook", Tags: []string{"ops", "release"}}

	assert.Equal(t, "Deploy runbook\nTags: ops, release\n\nRun the canary first.", p.EmbeddingText("Run the canary first."))
	assert.Equal(t, "Deploy runbook\nTags: ops, release", p.EmbeddingText(""))
	assert.Equal(t, "Solo", (&DocPage{Title: "Solo"}).EmbeddingText(""))
}
