package kernel

import "isokernel/pkg/task"

// Observer receives scheduler and arbitration events. It replaces the
// original implementation's debug print calls with structured callbacks a
// host can log, count, or ignore. Every method must return promptly and
// must not call back into the Kernel — it runs on the kernel's single
// logical thread of control.
type Observer interface {
	// TaskQueued fires when a task is appended to the due list.
	TaskQueued(id task.ID, priority byte)
	// TaskStateChanged fires whenever execute() transitions a task's state.
	TaskStateChanged(id task.ID, from, to task.State)
	// TaskTimedOut fires when execute() forces a running task into Timeout.
	TaskTimedOut(id task.ID)
	// WaitStarted fires when a task is suspended via Wait.
	WaitStarted(id task.ID)
	// WaitEnded fires when a suspended task's due has arrived.
	WaitEnded(id task.ID)
	// ResourceClaimed fires on a successful claim.
	ResourceClaimed(rt ResourceType, claimer task.ID)
	// ResourceClaimDenied fires when a claim attempt fails, with a short
	// reason ("queued-as-next-claimer", "preempted-by-higher-priority-waiter").
	ResourceClaimDenied(rt ResourceType, claimer task.ID, reason string)
	// ResourceReleased fires on release, forced or voluntary.
	ResourceReleased(rt ResourceType)
	// ResourceTypeInvalid fires when a caller references an out-of-range
	// resource type.
	ResourceTypeInvalid(rt ResourceType)
	// SortRequested fires when the due list is re-sorted.
	SortRequested(dueSize int)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) TaskQueued(task.ID, byte)                  {}
func (NopObserver) TaskStateChanged(task.ID, task.State, task.State) {}
func (NopObserver) TaskTimedOut(task.ID)                      {}
func (NopObserver) WaitStarted(task.ID)                       {}
func (NopObserver) WaitEnded(task.ID)                         {}
func (NopObserver) ResourceClaimed(ResourceType, task.ID)      {}
func (NopObserver) ResourceClaimDenied(ResourceType, task.ID, string) {}
func (NopObserver) ResourceReleased(ResourceType)              {}
func (NopObserver) ResourceTypeInvalid(ResourceType)           {}
func (NopObserver) SortRequested(int)                          {}
