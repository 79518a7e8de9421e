package kernel

import (
	"isokernel/pkg/clock"
	"isokernel/pkg/task"
)

func (k *Kernel) queueOnDueHandled(info *task.Info, at clock.Clock) {
	info.ForcedDue = false
	info.IsDueReported = true
	info.LastDueReported = at
	k.requestSort = true
}

func (k *Kernel) queueOnDue(info *task.Info, at clock.Clock) {
	k.dueList = append(k.dueList, dueEntry{taskID: info.ID, priority: info.Priority})
	k.observer.TaskQueued(info.ID, info.Priority)
	k.queueOnDueHandled(info, at)
}

func (k *Kernel) removeDueTaskByIndex(idx int) {
	if idx >= len(k.dueList) {
		return
	}
	k.dueList = append(k.dueList[:idx], k.dueList[idx+1:]...)
}

func (k *Kernel) dequeueFromDue(id task.ID) {
	for i := len(k.dueList) - 1; i >= 0; i-- {
		if k.dueList[i].taskID == id {
			k.removeDueTaskByIndex(i)
			return
		}
	}
}

// findDueTaskIndex searches the due list from the tail down to (and
// including) searchLimit, returning -1 if not found.
func (k *Kernel) findDueTaskIndex(id task.ID, searchLimit int) int {
	for i := len(k.dueList) - 1; i >= searchLimit; i-- {
		if k.dueList[i].taskID == id {
			return i
		}
	}
	return -1
}

// insertTaskOnDue inserts info into the due list AT currentRunningIndex,
// pushing the entry that was there (and everything after it) one slot right.
// Used when a resource claim or next-claimer hand-off needs a task slotted in
// mid-pass so it is picked up again by this same downward pass.
func (k *Kernel) insertTaskOnDue(currentRunningIndex int, info *task.Info, at clock.Clock) {
	if currentRunningIndex < 0 {
		return
	}
	if len(k.dueList) == 0 {
		k.queueOnDue(info, at)
		return
	}

	entry := dueEntry{taskID: info.ID, priority: info.Priority}
	insertAt := currentRunningIndex
	k.dueList = append(k.dueList, dueEntry{})
	copy(k.dueList[insertAt+1:], k.dueList[insertAt:len(k.dueList)-1])
	k.dueList[insertAt] = entry

	k.queueOnDueHandled(info, at)
}

func (k *Kernel) prepareToDueTask(info *task.Info, priority byte, withReset bool) {
	if info.Action.State == task.Suspended {
		info.Action.State = task.Running
	}
	info.Priority = priority
	info.Action.Enabled = true
	if withReset {
		if info.IsDueReported {
			k.dequeueFromDue(info.ID)
		}
		task.ResetState(info)
	}
	if info.IsDueReported {
		k.requestSort = true
	}
}

func (k *Kernel) commonPrepareDueNonCyclicalTask(info *task.Info, priority byte, withReset bool, at clock.Clock) {
	k.prepareToDueTask(info, priority, withReset)
	if info.IsDueReported {
		return
	}
	info.TimeInfo = at
}

// ScheduleNonCyclicalTask schedules a NonCyclical task to run at a future
// executionDue, with the given priority.
func (k *Kernel) ScheduleNonCyclicalTask(id task.ID, priority byte, withReset bool, executionDue clock.Clock) {
	if int(id) >= len(k.tasks) {
		return
	}
	info := &k.tasks[id].info
	if info.Type != task.NonCyclical {
		return
	}
	k.commonPrepareDueNonCyclicalTask(info, priority, withReset, executionDue)
}

// DueNonCyclicalOrResourceTaskNow hastens a NonCyclical or Resource task to
// run immediately with the given priority.
func (k *Kernel) DueNonCyclicalOrResourceTaskNow(id task.ID, priority byte, withReset bool) {
	if int(id) >= len(k.tasks) {
		return
	}
	info := &k.tasks[id].info
	if info.Type != task.NonCyclical && info.Type != task.Resource {
		return
	}
	k.commonPrepareDueNonCyclicalTask(info, priority, withReset, k.mainClock)
}

// DueTaskNow forces any task to be considered due right now regardless of
// its normal schedule, bypassing IsDue entirely. Intended for direct,
// exceptional intervention only.
func (k *Kernel) DueTaskNow(id task.ID, priority byte, withReset bool) {
	if int(id) >= len(k.tasks) {
		return
	}
	info := &k.tasks[id].info
	k.prepareToDueTask(info, priority, withReset)
	if info.IsDueReported {
		return
	}
	info.ForcedDue = true
}

// scheduler is phase 1 of a Run pass: it scans every task for due-ness and
// appends due ones, then re-sorts the due list ascending by priority if
// requested.
func (k *Kernel) scheduler() {
	main := k.mainClock
	for i := range k.tasks {
		info := &k.tasks[i].info
		if info.IsDueReported || !info.Action.Enabled {
			continue
		}
		if !info.ForcedDue && info.Action.State == task.Suspended {
			continue
		}
		if info.ForcedDue || task.IsDue(main, info) {
			k.queueOnDue(info, main)
		}
	}

	if k.requestSort {
		k.requestSort = false
		if len(k.dueList) > 1 {
			quicksortAsc(k.dueList, 0, len(k.dueList)-1)
			k.observer.SortRequested(len(k.dueList))
		}
	}
}
