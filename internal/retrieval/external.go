package retrieval

import (
	"context"

	"github.com/cloo-solutions/taskpilot/internal/domain"
)

// External tells the generator the question reaches beyond workspace data
func (s *Set) External(_ context.Context, req Request) (*domain.ContextBlock, error) {
	block := domain.NewContextBlock("external", "GENERAL KNOWLEDGE")
	block.AddLine("Part of this question asks for general or industry knowledge that is not stored in the workspace.")
	block.AddLine("Answer that part from general knowledge and label it as such.")
	block.AddLine("Do not present general knowledge as a fact about the user's tasks, meetings or documents.")
	return block, nil
}
