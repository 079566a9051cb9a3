package bulk

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/locker-client/pkg/util"
)

type fakeAdminAPI struct {
	mu         sync.Mutex
	deleted    []string
	cleared    []string
	failIDs    map[string]error
	started    chan string
	releaseAll chan struct{}
}

func (f *fakeAdminAPI) DeleteLocker(ctx context.Context, id string) error {
	return f.call(&f.deleted, id)
}

func (f *fakeAdminAPI) ForceClearLocker(ctx context.Context, id string) error {
	return f.call(&f.cleared, id)
}

func (f *fakeAdminAPI) call(log *[]string, id string) error {
	if f.started != nil {
		f.started <- id
		<-f.releaseAll
	}
	f.mu.Lock()
	*log = append(*log, id)
	err := f.failIDs[id]
	f.mu.Unlock()
	return err
}

func selectionOf(ids ...string) *Selection {
	sel := NewSelection()
	sel.SelectAll(ids)
	return sel
}

func TestCoordinator_PartialFailureReportedPerTarget(t *testing.T) {
	api := &fakeAdminAPI{failIDs: map[string]error{"B": apperrors.NewServerError(404, "Locker Not Found")}}
	c := NewCoordinator(api, zap.NewNop())
	sel := selectionOf("A", "B", "C")

	report, err := c.Run(context.Background(), sel, OperationDelete)
	require.NoError(t, err)

	require.True(t, report.Outcomes["A"].OK)
	require.False(t, report.Outcomes["B"].OK)
	require.Equal(t, "Locker Not Found", apperrors.ServerDetail(report.Outcomes["B"].Err))
	require.True(t, report.Outcomes["C"].OK)
	require.Equal(t, 2, report.Succeeded)
	require.Equal(t, 1, report.Failed)

	// Selection is cleared regardless of individual failures.
	require.Zero(t, sel.Len())
}

func TestCoordinator_AllTargetsDispatchedConcurrently(t *testing.T) {
	api := &fakeAdminAPI{
		started:    make(chan string, 3),
		releaseAll: make(chan struct{}),
	}
	c := NewCoordinator(api, zap.NewNop())

	done := make(chan Report, 1)
	go func() {
		report, _ := c.Run(context.Background(), selectionOf("A", "B", "C"), OperationForceClear)
		done <- report
	}()

	// All three requests are in flight before any completes; a slow or
	// failing target cannot block the others.
	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		select {
		case id := <-api.started:
			seen[id] = true
		case <-time.After(time.Second):
			t.Fatalf("only %d of 3 requests dispatched", len(seen))
		}
	}
	close(api.releaseAll)

	report := <-done
	require.Equal(t, 3, report.Succeeded)
	require.Len(t, seen, 3)
}

func TestCoordinator_ForceClearRoutesToForceClear(t *testing.T) {
	api := &fakeAdminAPI{}
	c := NewCoordinator(api, zap.NewNop())

	_, err := c.Run(context.Background(), selectionOf("A"), OperationForceClear)
	require.NoError(t, err)
	require.Equal(t, []string{"A"}, api.cleared)
	require.Empty(t, api.deleted)
}

func TestCoordinator_UnknownOperationFailsBeforeDispatch(t *testing.T) {
	api := &fakeAdminAPI{}
	c := NewCoordinator(api, zap.NewNop())
	sel := selectionOf("A")

	_, err := c.Run(context.Background(), sel, Operation("SHRED"))
	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Empty(t, api.deleted)
	// Nothing was dispatched, so the selection is kept.
	require.Equal(t, 1, sel.Len())
}

func TestCoordinator_NoDispatchChannelIsAggregateFailure(t *testing.T) {
	c := NewCoordinator(nil, zap.NewNop())

	_, err := c.Run(context.Background(), selectionOf("A"), OperationDelete)
	require.Error(t, err)
}

func TestCoordinator_EmptySelection(t *testing.T) {
	c := NewCoordinator(&fakeAdminAPI{}, zap.NewNop())

	report, err := c.Run(context.Background(), NewSelection(), OperationDelete)
	require.NoError(t, err)
	require.Empty(t, report.Outcomes)
}

func TestSelection_ToggleAndSelectAll(t *testing.T) {
	sel := NewSelection()
	sel.Toggle("A")
	sel.Toggle("B")
	sel.Toggle("A")
	require.Equal(t, []string{"B"}, sel.IDs())

	sel.SelectAll([]string{"X", "Y"})
	require.Equal(t, []string{"X", "Y"}, sel.IDs())

	sel.Clear()
	require.Zero(t, sel.Len())
}
