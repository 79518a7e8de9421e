package kernel

import "isokernel/pkg/task"

// recordingObserver captures every Observer callback for assertions, the way
// the rest of the corpus favors an in-memory recorder over a mock framework.
type recordingObserver struct {
	queued         []task.ID
	stateChanges   []stateChange
	timedOut       []task.ID
	waitStarted    []task.ID
	waitEnded      []task.ID
	claimed        []claimEvent
	claimDenied    []claimEvent
	released       []ResourceType
	invalidTypes   []ResourceType
	sorts          []int
}

type stateChange struct {
	id       task.ID
	from, to task.State
}

type claimEvent struct {
	rt      ResourceType
	claimer task.ID
	reason  string
}

func (o *recordingObserver) TaskQueued(id task.ID, _ byte) {
	o.queued = append(o.queued, id)
}

func (o *recordingObserver) TaskStateChanged(id task.ID, from, to task.State) {
	o.stateChanges = append(o.stateChanges, stateChange{id: id, from: from, to: to})
}

func (o *recordingObserver) TaskTimedOut(id task.ID) {
	o.timedOut = append(o.timedOut, id)
}

func (o *recordingObserver) WaitStarted(id task.ID) {
	o.waitStarted = append(o.waitStarted, id)
}

func (o *recordingObserver) WaitEnded(id task.ID) {
	o.waitEnded = append(o.waitEnded, id)
}

func (o *recordingObserver) ResourceClaimed(rt ResourceType, claimer task.ID) {
	o.claimed = append(o.claimed, claimEvent{rt: rt, claimer: claimer})
}

func (o *recordingObserver) ResourceClaimDenied(rt ResourceType, claimer task.ID, reason string) {
	o.claimDenied = append(o.claimDenied, claimEvent{rt: rt, claimer: claimer, reason: reason})
}

func (o *recordingObserver) ResourceReleased(rt ResourceType) {
	o.released = append(o.released, rt)
}

func (o *recordingObserver) ResourceTypeInvalid(rt ResourceType) {
	o.invalidTypes = append(o.invalidTypes, rt)
}

func (o *recordingObserver) SortRequested(dueSize int) {
	o.sorts = append(o.sorts, dueSize)
}

var _ Observer = (*recordingObserver)(nil)

func testConfig() Config {
	return Config{
		MaxTasks:      8,
		ResourceSize:  2,
		TaskFlagsSize: task.MinTaskFlagsSize,
	}
}

// succeedAfter returns an ActionFunc that reports Running for runs-1 calls
// and Success on the run-th call.
func succeedAfter(runs int) ActionFunc {
	calls := 0
	return func(_ task.ID, action *task.ActionInfo) {
		calls++
		if calls >= runs {
			action.State = task.Success
			return
		}
		action.State = task.Running
	}
}
