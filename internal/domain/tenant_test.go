package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTenant(t *testing.T) {
	now := time.Now()
	tenant := NewTenant("t1", "Acme", now)

	assert.Equal(t, "t1", tenant.ID)
	assert.Equal(t, "Acme", tenant.Name)
	assert.Equal(t, now, tenant.CreatedAt)
}

func TestValidateTenant(t *testing.T) {
	tests := []struct {
		name    string
		tenant  *Tenant
		wantErr bool
		errMsg  string
	}{
		{name: "valid tenant", tenant: &Tenant{ID: "t1", Name: "Acme"}},
		{name: "missing ID", tenant: &Tenant{Name: "Acme"}, wantErr: true, errMsg: "tenant ID is required"},
		{name: "missing name", tenant: &Tenant{ID: "t1"}, wantErr: true, errMsg: "tenant Name is required"},
		{name: "nil tenant", tenant: nil, wantErr: true, errMsg: "tenant cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTenant(tt.tenant)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateWorkspace(t *testing.T) {
	assert.NoError(t, ValidateWorkspace(NewWorkspace("w1", "t1", "Platform", time.Now())))
	assert.Error(t, ValidateWorkspace(&Workspace{ID: "w1", Name: "Platform"}))
	assert.Error(t, ValidateWorkspace(nil))
}

func TestDomainError_WrappingMatchesSentinel(t *testing.T) {
	cause := fmt.Errorf("row missing")
	err := fmt.Errorf("lookup: %w", ErrWorkItemNotFound.WithCause(cause))

	assert.True(t, errors.Is(err, ErrWorkItemNotFound))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrTenantNotFound))
	assert.Contains(t, err.Error(), "[NOT_FOUND] work item not found: row missing")
}
