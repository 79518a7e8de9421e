package kernel

import (
	"isokernel/pkg/clock"
	"isokernel/pkg/task"
)

// Run executes one full scheduler+execute pass: phase 1 scans every task for
// due-ness and builds the (priority-sorted) due list, phase 2 walks it
// tail-to-head — highest priority first — running each due task's action.
// Call this once per SchedulerPeriod tick; the host's run loop (see
// cmd/isokernel/runloop.go) is responsible for that cadence, not Run
// itself.
func (k *Kernel) Run() {
	k.lastSchedulerRun = k.mainClock

	k.scheduler()

	i := len(k.dueList) - 1
	for i >= 0 {
		k.execute(i)
		i = k.handleLastReleasedResource(i)
		i = k.handleLastClaimedResource(i)
		i--
	}

	k.lastSchedulerFinished = k.mainClock
}

// Wait suspends id for duration measured from the current main clock,
// setting Action.State to task.Suspended directly. A task action calls this
// on itself and then returns; execute() resumes it once SuspensionDue
// arrives.
func (k *Kernel) Wait(id task.ID, duration clock.Clock) {
	if int(id) >= len(k.tasks) {
		return
	}
	info := &k.tasks[id].info
	info.Action.State = task.Suspended
	info.SuspensionDue = k.mainClock.Add(duration)
}

// WaitFromSuspensionTime suspends id for whatever duration was last stashed
// in its SuspensionWait field (see PrepareResourceTaskTxWithTimeReturn),
// letting a resource task re-arm the same wait for a reply whose arrival
// time isn't known up front without the caller repeating the duration.
func (k *Kernel) WaitFromSuspensionTime(id task.ID) {
	if int(id) >= len(k.tasks) {
		return
	}
	k.Wait(id, k.tasks[id].info.SuspensionWait)
}
