package retrieval

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cloo-solutions/taskpilot/internal/domain"
)

// Tenants lists the organizations the user belongs to. It tries the user's
// primary tenant together with the user's memberships, then tenants reachable
// through visible workspaces, then tenants the user created or joined, and
// stops at the first non-empty tier. The primary tenant is listed first.
func (s *Set) Tenants(ctx context.Context, req Request) (*domain.ContextBlock, error) {
	block := domain.NewContextBlock("tenant", "ORGANIZATIONS")
	if req.Scope.IsEmpty() {
		block.AddLine("No organizations are associated with your account.")
		return block, nil
	}

	tenants, tier, err := s.resolveTenants(ctx, req.Scope)
	if err != nil {
		return nil, err
	}
	if len(tenants) == 0 {
		block.AddLine("No organizations are associated with your account.")
		return block, nil
	}

	s.logger.Debug("resolved tenants",
		zap.String("user_id", req.Scope.UserID),
		zap.String("tier", tier),
		zap.Int("count", len(tenants)))

	block.AddLine(fmt.Sprintf("You belong to %s:", plural(len(tenants), "organization", "organizations")))
	for _, t := range tenants {
		name := t.Name
		if t.ID == req.Scope.PrimaryTenantID {
			name += " (primary)"
		}
		block.AddEntry(t.ID, "", fmt.Sprintf("- %s: %s, %s",
			name,
			plural(t.MemberCount, "member", "members"),
			plural(t.WorkspaceCount, "workspace", "workspaces")))
	}
	return block, nil
}

func (s *Set) resolveTenants(ctx context.Context, scope *domain.Scope) ([]*domain.Tenant, string, error) {
	if scope.PrimaryTenantID != "" {
		tenant, err := s.store.TenantByID(ctx, scope.PrimaryTenantID)
		switch {
		case err == nil && tenant != nil:
			members, err := s.store.TenantsForUser(ctx, scope.UserID)
			if err != nil {
				return nil, "", fmt.Errorf("failed to load user tenants: %w", err)
			}
			return withPrimaryFirst(tenant, members), "primary", nil
		case err != nil && !errors.Is(err, domain.ErrTenantNotFound):
			return nil, "", fmt.Errorf("failed to load primary tenant: %w", err)
		}
	}

	if len(scope.WorkspaceIDs) > 0 {
		tenants, err := s.store.TenantsForWorkspaces(ctx, scope.WorkspaceIDs)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load workspace tenants: %w", err)
		}
		if len(tenants) > 0 {
			return tenants, "workspaces", nil
		}
	}

	tenants, err := s.store.TenantsForUser(ctx, scope.UserID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load user tenants: %w", err)
	}
	return tenants, "membership", nil
}

// withPrimaryFirst returns primary followed by the other tenants, without duplicates
func withPrimaryFirst(primary *domain.Tenant, others []*domain.Tenant) []*domain.Tenant {
	tenants := make([]*domain.Tenant, 0, len(others)+1)
	tenants = append(tenants, primary)
	for _, t := range others {
		if t.ID != primary.ID {
			tenants = append(tenants, t)
		}
	}
	return tenants
}
