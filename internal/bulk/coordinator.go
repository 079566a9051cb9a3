package bulk

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/spec-kit/locker-client/pkg/util"
)

// Operation enumerates the administrative bulk actions.
type Operation string

const (
	OperationDelete     Operation = "DELETE"
	OperationForceClear Operation = "FORCE_CLEAR"
)

// AdminAPI is the slice of the remote API the coordinator needs.
type AdminAPI interface {
	DeleteLocker(ctx context.Context, lockerID string) error
	ForceClearLocker(ctx context.Context, lockerID string) error
}

// Outcome records one target's result. Individual failures are data, not an
// aggregate failure.
type Outcome struct {
	OK  bool
	Err error
}

// Report aggregates the settled outcomes of one bulk invocation. It is
// discarded after being reported, never persisted.
type Report struct {
	Operation Operation
	Outcomes  map[string]Outcome
	Succeeded int
	Failed    int
}

// Selection tracks the target ids chosen for the next bulk run.
type Selection struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewSelection builds an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

// Toggle adds the id when absent and removes it when present.
func (s *Selection) Toggle(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
	} else {
		s.ids[id] = struct{}{}
	}
}

// SelectAll replaces the selection with the given ids.
func (s *Selection) SelectAll(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

// IDs returns the selected ids in stable order.
func (s *Selection) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the selection size.
func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
}

// Coordinator fires one administrative command per selected locker
// concurrently and reports partial failure coherently.
type Coordinator struct {
	api    AdminAPI
	logger *zap.Logger
}

// NewCoordinator builds the coordinator.
func NewCoordinator(api AdminAPI, logger *zap.Logger) *Coordinator {
	return &Coordinator{api: api, logger: logger}
}

// Run dispatches operation op to every selected target concurrently. Each
// target settles independently; one failure neither cancels nor blocks the
// others. The selection is cleared after all requests settle, whether or not
// every item succeeded. Run itself fails only when dispatch is impossible.
func (c *Coordinator) Run(ctx context.Context, sel *Selection, op Operation) (Report, error) {
	if c.api == nil {
		return Report{}, errors.New("bulk: no dispatch channel")
	}

	call, err := c.operationFunc(op)
	if err != nil {
		return Report{}, err
	}

	ids := sel.IDs()
	defer sel.Clear()

	// Each goroutine writes only its own slot; no outcome sharing.
	results := make([]Outcome, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := call(ctx, id); err != nil {
				results[i] = Outcome{Err: err}
				return nil
			}
			results[i] = Outcome{OK: true}
			return nil
		})
	}
	// The group never carries an error; closures capture failures per slot.
	_ = g.Wait()

	report := Report{Operation: op, Outcomes: make(map[string]Outcome, len(ids))}
	for i, id := range ids {
		report.Outcomes[id] = results[i]
		if results[i].OK {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	c.logger.Info("bulk operation settled",
		zap.String("operation", string(op)),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (c *Coordinator) operationFunc(op Operation) (func(context.Context, string) error, error) {
	switch op {
	case OperationDelete:
		return c.api.DeleteLocker, nil
	case OperationForceClear:
		return c.api.ForceClearLocker, nil
	default:
		return nil, apperrors.NewValidationError("operation", "unknown bulk operation")
	}
}
