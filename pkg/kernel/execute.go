package kernel

import "isokernel/pkg/task"

// getClaimedResourceTaskType returns the resource type that id currently
// holds claimed, or ResourceUnspecified if it holds none.
func (k *Kernel) getClaimedResourceTaskType(id task.ID) ResourceType {
	for rt, claimer := range k.resourceClaimer {
		if claimer == int(id) {
			return ResourceType(rt)
		}
	}
	return ResourceUnspecified
}

func (k *Kernel) setState(info *task.Info, to task.State) {
	from := info.Action.State
	if from == to {
		return
	}
	info.Action.State = to
	k.observer.TaskStateChanged(info.ID, from, to)
}

// execute runs phase 2 for a single due task at dueIndex: suspension checks,
// the pre-run timeout check, the task body itself, and terminal-state
// cleanup. It returns true if the task was dequeued (finished or timed out)
// so the caller can adjust its iteration index.
func (k *Kernel) execute(dueIndex int) bool {
	entry := k.dueList[dueIndex]
	id := entry.taskID
	rec := &k.tasks[id]
	info := &rec.info

	// A disabled or not-due-reported task cannot be run. scheduler() only
	// queues enabled tasks and marks each one IsDueReported; this guards
	// against the due list and a task's own Enabled/IsDueReported
	// bookkeeping drifting apart, e.g. after a mid-pass splice by the
	// claim/release handlers.
	if !info.Action.Enabled || !info.IsDueReported {
		return false
	}

	if info.Action.State == task.Suspended {
		if k.mainClock.Sub(info.SuspensionDue).Direction() >= 0 {
			k.setState(info, task.Running)
			k.observer.WaitEnded(id)
		} else {
			return false
		}
	}

	// The previous state can be Initial, Failed, or Success — it does not
	// matter, as long as it isn't already Running, the task is due to be
	// (re-)started.
	if info.Action.State != task.Running {
		k.setState(info, task.Running)
		info.LastExecuted = k.mainClock
	}

	if task.IsTimedOut(k.mainClock, info) {
		k.setState(info, task.Timeout)
		k.observer.TaskTimedOut(id)
	} else {
		before := info.Action.State
		rec.action(id, &info.Action)
		if after := info.Action.State; after != before {
			k.observer.TaskStateChanged(id, before, after)
		}
	}

	switch info.Action.State {
	case task.Suspended:
		k.observer.WaitStarted(id)
		return false
	case task.Running:
		return false
	case task.Failed, task.Success, task.Timeout:
		info.Action.Subtask = 0
		info.IsDueReported = false
		info.ForcedDue = false
		info.LastFinished = k.mainClock

		if info.Type == task.Resource || info.Type == task.NonCyclical {
			info.Action.Enabled = false
		}

		if claimed := k.getClaimedResourceTaskType(id); claimed != ResourceUnspecified {
			k.releaseResourceTask(claimed)
		}

		k.removeDueTaskByIndex(dueIndex)
		return true
	default:
		return false
	}
}
