// Package kernel implements the cooperative, non-preemptive, priority-driven
// task scheduler and shared-resource arbiter. It imports no logging or
// configuration library by design — the host wires an Observer and a Config
// from whatever ambient stack it prefers; see pkg/klog for the zap-backed
// Observer used by cmd/isokernel.
package kernel

import (
	"isokernel/pkg/clock"
	"isokernel/pkg/ring"
	"isokernel/pkg/task"
)

// ResourceType identifies one of the kernel's claimable shared resources.
type ResourceType int

// ResourceUnspecified marks "no resource" in claim/release bookkeeping.
const ResourceUnspecified ResourceType = -1

// ActionFunc is a task body: given its own id and a pointer to its mutable
// action state, it advances its subtask and eventually settles State into
// Failed, Success, or leaves it Suspended/Running.
type ActionFunc func(id task.ID, action *task.ActionInfo)

type taskRecord struct {
	info   task.Info
	action ActionFunc
}

type dueEntry struct {
	taskID   task.ID
	priority byte
}

// Config bounds the kernel's static tables, mirroring isos_task.h's
// configuration macros.
type Config struct {
	MaxTasks        int
	ResourceSize    int
	TaskFlagsSize   int
	SchedulerPeriod clock.Clock
}

// DefaultConfig matches the original ISOS demonstration constants.
func DefaultConfig() Config {
	return Config{
		MaxTasks:        48,
		ResourceSize:    8,
		TaskFlagsSize:   4,
		SchedulerPeriod: clock.New(0, 10),
	}
}

// Kernel is the scheduler/arbiter singleton. It is not safe for concurrent
// use: spec.md's concurrency model requires every call (Tick, Run, and any
// service call made from within a task body) to happen on a single logical
// thread of control.
type Kernel struct {
	cfg Config

	tasks   []taskRecord
	dueList []dueEntry

	resourceTaskList []task.ID      // resource type -> owning task id
	resourceClaimer  []int          // resource type -> claimer task id, -1 if unclaimed
	resourceBuffers  []*ring.Buffer // [2*type]=Tx, [2*type+1]=Rx

	mainClock             clock.Clock
	lastSchedulerRun      clock.Clock
	lastSchedulerFinished clock.Clock

	requestSort bool

	lastClaimedResourceTask  ResourceType
	lastReleasedResourceTask ResourceType

	observer Observer
}

// New constructs a Kernel ready for task registration.
func New(cfg Config, observer Observer) *Kernel {
	if observer == nil {
		observer = NopObserver{}
	}
	if cfg.TaskFlagsSize < task.MinTaskFlagsSize {
		cfg.TaskFlagsSize = task.MinTaskFlagsSize
	}

	resourceBuffers := make([]*ring.Buffer, cfg.ResourceSize*2)
	for i := range resourceBuffers {
		resourceBuffers[i] = ring.New(0)
	}

	resourceClaimer := make([]int, cfg.ResourceSize)
	for i := range resourceClaimer {
		resourceClaimer[i] = -1
	}

	return &Kernel{
		cfg:                      cfg,
		tasks:                    make([]taskRecord, 0, cfg.MaxTasks),
		resourceTaskList:         make([]task.ID, cfg.ResourceSize),
		resourceClaimer:          resourceClaimer,
		resourceBuffers:          resourceBuffers,
		lastClaimedResourceTask:  ResourceUnspecified,
		lastReleasedResourceTask: ResourceUnspecified,
		observer:                 observer,
	}
}

// Clock returns a copy of the kernel's main clock.
func (k *Kernel) Clock() clock.Clock { return k.mainClock }

// TaskSize returns the number of registered tasks.
func (k *Kernel) TaskSize() int { return len(k.tasks) }

// DueSize returns the current depth of the due list, a rough measure of
// scheduling pressure.
func (k *Kernel) DueSize() int { return len(k.dueList) }

// ResourceSize returns the number of resource slots this kernel was
// configured with.
func (k *Kernel) ResourceSize() int { return k.cfg.ResourceSize }

// ResourceClaimer reports the task id currently holding rt, and false if it
// is unclaimed or rt is out of range.
func (k *Kernel) ResourceClaimer(rt ResourceType) (task.ID, bool) {
	if rt < 0 || int(rt) >= len(k.resourceClaimer) {
		return 0, false
	}
	claimer := k.resourceClaimer[rt]
	if claimer < 0 {
		return 0, false
	}
	return task.ID(claimer), true
}

// TaskFlag reads one inter-task signalling byte. Out-of-range ids or flag
// numbers return 0, matching Isos_GetTaskFlags.
func (k *Kernel) TaskFlag(id task.ID, flagNo int) byte {
	if int(id) >= len(k.tasks) || flagNo < 0 || flagNo >= k.cfg.TaskFlagsSize {
		return 0
	}
	return k.tasks[id].info.Action.Flags[flagNo]
}

// TaskInfo returns a copy of a registered task's scheduling record, intended
// for "super-user" inspection (diagnostics, HTTP status).
func (k *Kernel) TaskInfo(id task.ID) (task.Info, bool) {
	if int(id) >= len(k.tasks) {
		return task.Info{}, false
	}
	return k.tasks[id].info, true
}

// SetTaskTimeout updates a task's configured timeout.
func (k *Kernel) SetTaskTimeout(id task.ID, timeout clock.Clock) {
	if int(id) >= len(k.tasks) {
		return
	}
	k.tasks[id].info.Timeout = timeout
}

func (k *Kernel) initClockToNow(info *task.Info) {
	now := k.mainClock
	info.LastDueReported = now
	info.LastExecuted = now
	info.LastFinished = now
	info.SuspensionDue = now
}

func (k *Kernel) registerTask(typ task.Type, rt ResourceType, enabled bool, timeInfo, timeout clock.Clock, priority byte, action ActionFunc, txSize, rxSize int) (task.ID, bool) {
	if len(k.tasks) >= k.cfg.MaxTasks {
		return 0, false
	}

	id := task.ID(len(k.tasks))
	info := task.Info{
		ID:       id,
		Priority: priority,
		Type:     typ,
		Action: task.ActionInfo{
			Enabled: enabled,
			Flags:   make([]byte, k.cfg.TaskFlagsSize),
		},
		TimeInfo: timeInfo,
		Timeout:  timeout,
	}
	task.ResetState(&info)
	k.initClockToNow(&info)

	if typ == task.Resource && rt >= 0 && int(rt) < k.cfg.ResourceSize {
		k.resourceTaskList[rt] = id
		k.resourceBuffers[2*rt] = ring.New(txSize)
		k.resourceBuffers[2*rt+1] = ring.New(rxSize)
	}

	k.tasks = append(k.tasks, taskRecord{info: info, action: action})
	return id, true
}

// RegisterNonCyclicalTask registers a task that runs once at executionDue.
func (k *Kernel) RegisterNonCyclicalTask(enabled bool, executionDue, timeout clock.Clock, priority byte, action ActionFunc) (task.ID, bool) {
	return k.registerTask(task.NonCyclical, ResourceUnspecified, enabled, executionDue, timeout, priority, action, 0, 0)
}

// RegisterResourceTask registers a resource task with no Tx/Rx buffers
// (suitable for resources whose protocol carries no byte payload).
func (k *Kernel) RegisterResourceTask(rt ResourceType, timeout clock.Clock, priority byte, action ActionFunc) (task.ID, bool) {
	return k.registerTask(task.Resource, rt, false, clock.Clock{}, timeout, priority, action, 0, 0)
}

// RegisterResourceTaskWithBuffer registers a resource task with a single
// (Tx-only or Rx-only) buffer of the given size.
func (k *Kernel) RegisterResourceTaskWithBuffer(rt ResourceType, timeout clock.Clock, priority byte, action ActionFunc, isTx bool, size int) (task.ID, bool) {
	if isTx {
		return k.registerTask(task.Resource, rt, false, clock.Clock{}, timeout, priority, action, size, 0)
	}
	return k.registerTask(task.Resource, rt, false, clock.Clock{}, timeout, priority, action, 0, size)
}

// RegisterResourceTaskWithBuffers registers a resource task with both Tx and
// Rx buffers.
func (k *Kernel) RegisterResourceTaskWithBuffers(rt ResourceType, timeout clock.Clock, priority byte, action ActionFunc, txSize, rxSize int) (task.ID, bool) {
	return k.registerTask(task.Resource, rt, false, clock.Clock{}, timeout, priority, action, txSize, rxSize)
}

// RegisterLooselyRepeatedTask registers a task whose next due re-anchors
// from the last time it finished.
func (k *Kernel) RegisterLooselyRepeatedTask(enabled bool, period, timeout clock.Clock, priority byte, action ActionFunc) (task.ID, bool) {
	return k.registerTask(task.LooselyRepeated, ResourceUnspecified, enabled, period, timeout, priority, action, 0, 0)
}

// RegisterRepeatedTask registers a task whose next due re-anchors from the
// last time it was executed.
func (k *Kernel) RegisterRepeatedTask(enabled bool, period, timeout clock.Clock, priority byte, action ActionFunc) (task.ID, bool) {
	return k.registerTask(task.Repeated, ResourceUnspecified, enabled, period, timeout, priority, action, 0, 0)
}

// RegisterPeriodicTask registers a task whose next due re-anchors from the
// last time it was reported due.
func (k *Kernel) RegisterPeriodicTask(enabled bool, period, timeout clock.Clock, priority byte, action ActionFunc) (task.ID, bool) {
	return k.registerTask(task.Periodic, ResourceUnspecified, enabled, period, timeout, priority, action, 0, 0)
}

// Tick advances the main clock by one millisecond. Call this from the tick
// source (an ISR on real hardware; a simulated ticker here).
func (k *Kernel) Tick() {
	k.mainClock.Ms++
	if k.mainClock.Ms >= clock.MsPerDay {
		k.mainClock.Ms = 0
		k.mainClock.Day++
	}
}
