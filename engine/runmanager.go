package engine

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/thrasher-corp/tickbacktester/common"
)

// SetupRunManager creates a run manager to allow the backtester to manage multiple strategies
func SetupRunManager() *RunManager {
	return &RunManager{}
}

// AddRun adds a run to the manager
func (r *RunManager) AddRun(b *BackTest) error {
	if r == nil {
		return fmt.Errorf("%w RunManager", common.ErrNilPointer)
	}
	if b == nil {
		return fmt.Errorf("%w BackTest", common.ErrNilPointer)
	}
	r.m.Lock()
	defer r.m.Unlock()
	for i := range r.runs {
		if r.runs[i].Equal(b) {
			return fmt.Errorf("%w %s %s", errRunAlreadyMonitored, b.MetaData.ID, b.MetaData.Strategy)
		}
	}
	r.runs = append(r.runs, b)
	return nil
}

// List details all runs
func (r *RunManager) List() ([]*RunSummary, error) {
	if r == nil {
		return nil, fmt.Errorf("%w RunManager", common.ErrNilPointer)
	}
	r.m.Lock()
	defer r.m.Unlock()
	resp := make([]*RunSummary, len(r.runs))
	for i := range r.runs {
		sum, err := r.runs[i].GenerateSummary()
		if err != nil {
			return nil, err
		}
		resp[i] = sum
	}
	return resp, nil
}

// GetSummary returns details about a run
func (r *RunManager) GetSummary(id uuid.UUID) (*RunSummary, error) {
	if r == nil {
		return nil, fmt.Errorf("%w RunManager", common.ErrNilPointer)
	}
	r.m.Lock()
	defer r.m.Unlock()
	for i := range r.runs {
		if !r.runs[i].MatchesID(id) {
			continue
		}
		return r.runs[i].GenerateSummary()
	}
	return nil, fmt.Errorf("%s %w", id, errRunNotFound)
}

// StopRun stops a run if it is running
func (r *RunManager) StopRun(id uuid.UUID) error {
	if r == nil {
		return fmt.Errorf("%w RunManager", common.ErrNilPointer)
	}
	r.m.Lock()
	defer r.m.Unlock()
	for i := range r.runs {
		if !r.runs[i].MatchesID(id) {
			continue
		}
		switch {
		case r.runs[i].IsRunning():
			return r.runs[i].Stop()
		case r.runs[i].HasRan():
			return fmt.Errorf("%w %v", errAlreadyRan, id)
		default:
			return fmt.Errorf("%w %v", errRunHasNotRan, id)
		}
	}
	return fmt.Errorf("%s %w", id, errRunNotFound)
}

// StopAllRuns stops all running strategies
func (r *RunManager) StopAllRuns() ([]*RunSummary, error) {
	if r == nil {
		return nil, fmt.Errorf("%w RunManager", common.ErrNilPointer)
	}
	r.m.Lock()
	defer r.m.Unlock()
	var resp []*RunSummary
	for i := range r.runs {
		if !r.runs[i].IsRunning() {
			continue
		}
		if err := r.runs[i].Stop(); err != nil {
			return nil, err
		}
		sum, err := r.runs[i].GenerateSummary()
		if err != nil {
			return nil, err
		}
		resp = append(resp, sum)
	}
	return resp, nil
}

// StartRun executes a run in the background if found
func (r *RunManager) StartRun(ctx context.Context, id uuid.UUID) error {
	if r == nil {
		return fmt.Errorf("%w RunManager", common.ErrNilPointer)
	}
	r.m.Lock()
	defer r.m.Unlock()
	for i := range r.runs {
		if !r.runs[i].MatchesID(id) {
			continue
		}
		return r.runs[i].ExecuteStrategy(ctx, false)
	}
	return fmt.Errorf("%s %w", id, errRunNotFound)
}

// StartAllRuns executes every run that has not ran yet
func (r *RunManager) StartAllRuns(ctx context.Context) ([]uuid.UUID, error) {
	if r == nil {
		return nil, fmt.Errorf("%w RunManager", common.ErrNilPointer)
	}
	r.m.Lock()
	defer r.m.Unlock()
	executedRuns := make([]uuid.UUID, 0, len(r.runs))
	for i := range r.runs {
		if r.runs[i].HasRan() || r.runs[i].IsRunning() {
			continue
		}
		if err := r.runs[i].ExecuteStrategy(ctx, false); err != nil {
			return nil, err
		}
		executedRuns = append(executedRuns, r.runs[i].MetaData.ID)
	}
	return executedRuns, nil
}

// ClearRun removes a run from memory and releases its resources
func (r *RunManager) ClearRun(id uuid.UUID) error {
	if r == nil {
		return fmt.Errorf("%w RunManager", common.ErrNilPointer)
	}
	r.m.Lock()
	defer r.m.Unlock()
	for i := range r.runs {
		if !r.runs[i].MatchesID(id) {
			continue
		}
		if r.runs[i].IsRunning() {
			return fmt.Errorf("%w %v, currently running. Stop it first", errCannotClear, r.runs[i].MetaData.ID)
		}
		err := r.runs[i].Close()
		r.runs = append(r.runs[:i], r.runs[i+1:]...)
		return err
	}
	return fmt.Errorf("%s %w", id, errRunNotFound)
}

// ClearAllRuns removes all runs that are not running from memory
func (r *RunManager) ClearAllRuns() (clearedRuns, remainingRuns []*RunSummary, err error) {
	if r == nil {
		return nil, nil, fmt.Errorf("%w RunManager", common.ErrNilPointer)
	}
	r.m.Lock()
	defer r.m.Unlock()
	var closeErr error
	for i := 0; i < len(r.runs); i++ {
		var run *RunSummary
		run, err = r.runs[i].GenerateSummary()
		if err != nil {
			return nil, nil, err
		}
		if r.runs[i].IsRunning() {
			remainingRuns = append(remainingRuns, run)
			continue
		}
		closeErr = common.AppendError(closeErr, r.runs[i].Close())
		clearedRuns = append(clearedRuns, run)
		r.runs = append(r.runs[:i], r.runs[i+1:]...)
		i--
	}
	return clearedRuns, remainingRuns, closeErr
}
