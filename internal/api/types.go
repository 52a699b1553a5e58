package api

import (
	"context"

	"github.com/krishisetu/sahayak/internal/orchestrator"
)

// Advisor is the advisory entry point the HTTP layer fronts. Satisfied by
// *orchestrator.Orchestrator; narrowed to an interface for handler tests.
type Advisor interface {
	Handle(ctx context.Context, req orchestrator.Request) *orchestrator.Response
}

// ErrorResp is the JSON error envelope.
type ErrorResp struct {
	Detail string `json:"detail"`
}
