package application

import (
	"context"
	"fmt"

	"github.com/wms-platform/scan-service/internal/domain"
)

// ConfirmResult is the outcome of a mode's save workflow. LineErrors counts
// per-item failures the workflow continued past.
type ConfirmResult struct {
	Message    string            `json:"message"`
	Finalized  bool              `json:"finalized"`
	LineErrors int               `json:"lineErrors"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// ModeHandler implements one scan mode's workflow. Load attaches a
// validated record to the session; Confirm runs the save workflow.
type ModeHandler interface {
	Mode() domain.ScanMode
	Load(ctx context.Context, session *domain.ScanSession, record *ValidatedRecord) error
	Confirm(ctx context.Context, session *domain.ScanSession) (*ConfirmResult, error)
	// Finalizes reports whether Confirm validates the record upstream
	// after persisting the scan data.
	Finalizes() bool
}

// Registry maps scan modes to their handlers. Adding a mode means
// registering a handler.
type Registry struct {
	handlers map[domain.ScanMode]ModeHandler
}

func NewRegistry(handlers ...ModeHandler) *Registry {
	r := &Registry{handlers: make(map[domain.ScanMode]ModeHandler)}
	for _, h := range handlers {
		r.Register(h)
	}
	return r
}

func (r *Registry) Register(handler ModeHandler) {
	r.handlers[handler.Mode()] = handler
}

func (r *Registry) Get(mode domain.ScanMode) (ModeHandler, error) {
	handler, ok := r.handlers[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMode, mode)
	}
	return handler, nil
}
