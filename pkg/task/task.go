// Package task defines the task record, its type/state enumerations, and
// the due/timeout predicates the scheduler evaluates on each pass.
package task

import "isokernel/pkg/clock"

// ID identifies a registered task by its registration-order index.
type ID = byte

// Type classifies how a task's next due time is computed.
type Type int

const (
	// NonCyclical tasks run once at a scheduled ExecutionDue.
	NonCyclical Type = iota
	// Resource tasks back a claimable shared resource; otherwise behave
	// like NonCyclical tasks.
	Resource
	// LooselyRepeated tasks re-anchor their period from LastFinished.
	LooselyRepeated
	// Repeated tasks re-anchor their period from LastExecuted.
	Repeated
	// Periodic tasks re-anchor their period from LastDueReported.
	Periodic
)

// State is the lifecycle state of a task's current run.
type State int

const (
	Undefined State = iota - 1
	Initial
	Running
	Suspended
	Failed
	Success
	Timeout
)

// MinTaskFlagsSize is the smallest usable flags array: a resource task needs
// three bytes to encode a next-claimer hand-off (has-next, id, priority).
const MinTaskFlagsSize = 3

// ActionInfo is the slice of task state visible to (and mutable by) the task
// action callback itself.
type ActionInfo struct {
	State   State
	Enabled bool
	Subtask byte
	// Flags carries task-specific semaphore/result bytes. For a resource
	// task, Flags[0:3] is the next-claimer hand-off: has-next-claimer,
	// next claimer id, next claimer priority.
	Flags []byte
}

// ClearFlags zeroes the action flags.
func ClearFlags(a *ActionInfo) {
	for i := range a.Flags {
		a.Flags[i] = 0
	}
}

// Info is a task's full scheduling record.
type Info struct {
	ID       ID
	Priority byte
	Type     Type
	Action   ActionInfo

	LastDueReported clock.Clock
	LastExecuted    clock.Clock
	LastFinished    clock.Clock

	// TimeInfo aliases two meanings depending on Type, mirroring the C
	// union it is grounded on: for LooselyRepeated/Repeated/Periodic tasks
	// it is the repeat Period; for NonCyclical/Resource tasks it is the
	// absolute ExecutionDue.
	TimeInfo clock.Clock

	Timeout clock.Clock

	// SuspensionDue is the absolute clock at which a Suspended task becomes
	// runnable again.
	SuspensionDue clock.Clock
	// SuspensionWait is a reusable wait duration, stashed by callers like
	// PrepareResourceTaskTxWithTimeReturn so a later WaitFromSuspensionTime
	// call can re-arm the same wait without the caller repeating it.
	SuspensionWait clock.Clock

	IsDueReported bool
	ForcedDue     bool
}

// NextDue computes the next due time for a cyclical task. Callers must not
// use this for NonCyclical/Resource tasks (see IsDue).
func NextDue(info *Info) clock.Clock {
	switch info.Type {
	case LooselyRepeated:
		return info.LastFinished.Add(info.TimeInfo)
	case Repeated:
		return info.LastExecuted.Add(info.TimeInfo)
	default: // Periodic, and the default fallback for any other cyclical type
		return info.LastDueReported.Add(info.TimeInfo)
	}
}

// IsDue reports whether a task is due to run given the current main clock.
func IsDue(main clock.Clock, info *Info) bool {
	var diff clock.Clock
	if info.Type == NonCyclical || info.Type == Resource {
		diff = main.Sub(info.TimeInfo)
	} else {
		diff = main.Sub(NextDue(info))
	}
	return diff.Direction() >= 0
}

// IsTimedOut reports whether a running task has exceeded its configured
// timeout since it was last executed. A zero Timeout means no timeout is
// configured.
func IsTimedOut(main clock.Clock, info *Info) bool {
	if info.Timeout.Day == 0 && info.Timeout.Ms == 0 {
		return false
	}
	elapsed := main.Sub(info.LastExecuted)
	remaining := info.Timeout.Sub(elapsed)
	return remaining.Direction() <= 0
}

// ResetState reinitializes a task's action state to Initial, as done on
// registration and on a fresh resource claim.
func ResetState(info *Info) {
	ClearFlags(&info.Action)
	info.Action.Subtask = 0
	info.Action.State = Initial
	info.IsDueReported = false
	info.ForcedDue = false
}
