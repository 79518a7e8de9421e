package kernel

import (
	"isokernel/pkg/clock"
	"isokernel/pkg/ring"
	"isokernel/pkg/task"
)

func (k *Kernel) checkResourceTaskTypeValidity(rt ResourceType) bool {
	if rt < 0 || int(rt) >= k.cfg.ResourceSize {
		k.observer.ResourceTypeInvalid(rt)
		return false
	}
	return true
}

// putNextClaimerFlags records a waiting claimer in a resource task's flag
// bytes: Flags[0] has-next-claimer, Flags[1] id, Flags[2] priority.
func putNextClaimerFlags(flags []byte, id task.ID, priority byte) {
	flags[0] = 1
	flags[1] = id
	flags[2] = priority
}

func clearNextClaimerFlags(flags []byte) {
	flags[0] = 0
	flags[1] = 0
	flags[2] = 0
}

// solveCompetingNextClaims records the challenger as next claimer when none
// is recorded yet, or replaces the recorded one when the challenger is
// strictly higher priority; a tie or lower priority changes nothing. It
// reports whether the challenger was recorded.
func solveCompetingNextClaims(flags []byte, challenger task.ID, challengerPriority byte) bool {
	if flags[0] == 0 {
		putNextClaimerFlags(flags, challenger, challengerPriority)
		return true
	}
	if challengerPriority > flags[2] {
		putNextClaimerFlags(flags, challenger, challengerPriority)
		return true
	}
	return false
}

// ClaimResourceTask attempts to claim rt for claimerID. If the resource is
// free, the claim succeeds immediately and the resource task is reset to run
// from Initial. If it is held, claimerID is recorded as (or loses out on
// becoming) the next claimer, which gets another turn this pass to re-claim
// the resource once it is released (see handleLastReleasedResource).
func (k *Kernel) ClaimResourceTask(rt ResourceType, claimerID task.ID, claimerPriority byte) bool {
	if !k.checkResourceTaskTypeValidity(rt) {
		return false
	}

	owner := k.resourceTaskList[rt]
	info := &k.tasks[owner].info

	if k.resourceClaimer[rt] < 0 {
		k.resourceClaimer[rt] = int(claimerID)
		task.ResetState(info)
		info.Action.Enabled = true
		info.TimeInfo = k.mainClock
		k.lastClaimedResourceTask = rt
		k.observer.ResourceClaimed(rt, claimerID)
		return true
	}

	if k.resourceClaimer[rt] == int(claimerID) {
		k.observer.ResourceClaimed(rt, claimerID)
		return true
	}

	if solveCompetingNextClaims(info.Action.Flags, claimerID, claimerPriority) {
		k.observer.ResourceClaimDenied(rt, claimerID, "queued-as-next-claimer")
	} else {
		k.observer.ResourceClaimDenied(rt, claimerID, "preempted-by-higher-priority-waiter")
	}
	return false
}

// releaseResourceTask releases rt unconditionally. It only frees the claimer
// slot — it does NOT reassign ownership to a waiting next claimer or touch
// the resource task's own action state. A waiting next claimer is recorded in
// the resource task's flags and is resolved by handleLastReleasedResource,
// which gives it another chance to run this same pass so its own body can
// re-call ClaimResourceTask; the actual hand-off happens there, in
// ClaimResourceTask's acceptance branch.
func (k *Kernel) releaseResourceTask(rt ResourceType) {
	k.resourceClaimer[rt] = -1
	k.lastReleasedResourceTask = rt
	k.observer.ResourceReleased(rt)
}

// ReleaseResourceTask is the public entry point a task body calls to release
// a resource it holds.
func (k *Kernel) ReleaseResourceTask(rt ResourceType) bool {
	if !k.checkResourceTaskTypeValidity(rt) {
		return false
	}
	k.releaseResourceTask(rt)
	return true
}

// handleLastReleasedResource resolves a resource release that happened during
// this pass: if the released resource task has a recorded next claimer that
// is already on this pass's due list but was overlooked earlier (the claim it
// attempted failed because the resource wasn't free yet), that claimer is
// repositioned to run again right after the currently running entry, giving
// it another chance to retry ClaimResourceTask before this pass ends. A next
// claimer not yet due this pass is left to its normal turn.
func (k *Kernel) handleLastReleasedResource(currentDueIndex int) int {
	rt := k.lastReleasedResourceTask
	if rt == ResourceUnspecified {
		return currentDueIndex
	}
	k.lastReleasedResourceTask = ResourceUnspecified

	owner := k.resourceTaskList[rt]
	info := &k.tasks[owner].info
	if info.Action.Flags[0] == 0 {
		return currentDueIndex
	}

	nextClaimerID := task.ID(info.Action.Flags[1])
	clearNextClaimerFlags(info.Action.Flags)

	idx := k.findDueTaskIndex(nextClaimerID, currentDueIndex)
	if idx < currentDueIndex {
		return currentDueIndex
	}
	if idx > currentDueIndex {
		claimerInfo := &k.tasks[nextClaimerID].info
		k.removeDueTaskByIndex(idx)
		k.insertTaskOnDue(currentDueIndex, claimerInfo, claimerInfo.LastDueReported)
	}
	k.requestSort = true
	return currentDueIndex + 1
}

// handleLastClaimedResource folds a resource claim that happened during this
// pass into the due list: the freshly claimed resource task is spliced in
// right at the currently running entry's slot and given another chance to
// run immediately, this same pass.
func (k *Kernel) handleLastClaimedResource(currentDueIndex int) int {
	rt := k.lastClaimedResourceTask
	if rt == ResourceUnspecified {
		return currentDueIndex
	}
	k.lastClaimedResourceTask = ResourceUnspecified

	owner := k.resourceTaskList[rt]
	info := &k.tasks[owner].info
	k.insertTaskOnDue(currentDueIndex, info, k.mainClock)
	return currentDueIndex + 1
}

func (k *Kernel) commonPrepareResourceTaskTx(rt ResourceType, data []byte) bool {
	if !k.checkResourceTaskTypeValidity(rt) {
		return false
	}
	buf := k.resourceBuffers[2*rt]
	return buf.Puts(data)
}

// PrepareResourceTaskTx queues outgoing bytes on a resource's Tx buffer.
func (k *Kernel) PrepareResourceTaskTx(rt ResourceType, data []byte) bool {
	return k.commonPrepareResourceTaskTx(rt, data)
}

// PrepareResourceTaskTxWithSizeReturn queues data and arms the resource's Rx
// buffer with expectedRxSize, for protocols where the reply size is known up
// front. A caller polls ResourceTaskHasExpectedDataSize to detect arrival.
func (k *Kernel) PrepareResourceTaskTxWithSizeReturn(rt ResourceType, data []byte, expectedRxSize int) bool {
	if !k.commonPrepareResourceTaskTx(rt, data) {
		return false
	}
	k.resourceBuffers[2*rt+1].ExpectedDataSize = expectedRxSize
	return true
}

// PrepareResourceTaskTxWithTimeReturn queues data, arms the resource's Rx
// buffer to accept any amount of data, and stashes wait on the resource
// task's own SuspensionWait so its body can call WaitFromSuspensionTime to
// suspend itself for a reply whose arrival time isn't known up front.
func (k *Kernel) PrepareResourceTaskTxWithTimeReturn(rt ResourceType, data []byte, wait clock.Clock) bool {
	if !k.commonPrepareResourceTaskTx(rt, data) {
		return false
	}
	k.resourceBuffers[2*rt+1].ExpectedDataSize = -1
	k.tasks[k.resourceTaskList[rt]].info.SuspensionWait = wait
	return true
}

// GetResourceTaskState reports the lifecycle state of the task backing rt.
func (k *Kernel) GetResourceTaskState(rt ResourceType) (task.State, bool) {
	if !k.checkResourceTaskTypeValidity(rt) {
		return task.Undefined, false
	}
	return k.tasks[k.resourceTaskList[rt]].info.Action.State, true
}

func (k *Kernel) commonPeekOrGetResourceTaskRx(rt ResourceType, minItemSize int, consume bool) ([]byte, bool) {
	if !k.checkResourceTaskTypeValidity(rt) {
		return nil, false
	}
	buf := k.resourceBuffers[2*rt+1]
	if consume {
		return buf.Gets(minItemSize)
	}
	return buf.Peeks(minItemSize)
}

// PeekResourceTaskRx reads (without consuming) at least minItemSize bytes
// from a resource's Rx buffer.
func (k *Kernel) PeekResourceTaskRx(rt ResourceType, minItemSize int) ([]byte, bool) {
	return k.commonPeekOrGetResourceTaskRx(rt, minItemSize, false)
}

// GetResourceTaskRx reads and consumes at least minItemSize bytes from a
// resource's Rx buffer.
func (k *Kernel) GetResourceTaskRx(rt ResourceType, minItemSize int) ([]byte, bool) {
	return k.commonPeekOrGetResourceTaskRx(rt, minItemSize, true)
}

func (k *Kernel) flushResourceTaskBuffer(buf *ring.Buffer) bool {
	if buf == nil {
		return false
	}
	buf.Flush()
	return true
}

// FlushResourceTaskTx drops a resource's queued Tx bytes without changing
// its capacity.
func (k *Kernel) FlushResourceTaskTx(rt ResourceType) bool {
	if !k.checkResourceTaskTypeValidity(rt) {
		return false
	}
	return k.flushResourceTaskBuffer(k.resourceBuffers[2*rt])
}

// FlushResourceTaskRx drops a resource's queued Rx bytes without changing
// its capacity.
func (k *Kernel) FlushResourceTaskRx(rt ResourceType) bool {
	if !k.checkResourceTaskTypeValidity(rt) {
		return false
	}
	return k.flushResourceTaskBuffer(k.resourceBuffers[2*rt+1])
}

func (k *Kernel) getResourceTaskDataSize(buf *ring.Buffer) int {
	if buf == nil {
		return 0
	}
	return buf.DataSize()
}

// GetResourceTaskTxDataSize reports how many bytes are queued in a
// resource's Tx buffer.
func (k *Kernel) GetResourceTaskTxDataSize(rt ResourceType) (int, bool) {
	if !k.checkResourceTaskTypeValidity(rt) {
		return 0, false
	}
	return k.getResourceTaskDataSize(k.resourceBuffers[2*rt]), true
}

// GetResourceTaskRxDataSize reports how many bytes are queued in a
// resource's Rx buffer.
func (k *Kernel) GetResourceTaskRxDataSize(rt ResourceType) (int, bool) {
	if !k.checkResourceTaskTypeValidity(rt) {
		return 0, false
	}
	return k.getResourceTaskDataSize(k.resourceBuffers[2*rt+1]), true
}

// ResourceTaskHasExpectedDataSize reports whether a resource's Tx (or Rx)
// buffer currently satisfies its configured ExpectedDataSize threshold.
func (k *Kernel) ResourceTaskHasExpectedDataSize(rt ResourceType, isTx bool) bool {
	if !k.checkResourceTaskTypeValidity(rt) {
		return false
	}
	idx := 2*rt + 1
	if isTx {
		idx = 2 * rt
	}
	return k.resourceBuffers[idx].HasExpectedDataSize()
}

// GetResourceTaskBuffer exposes direct access to a resource's underlying
// ring buffer, for hosts that need more control than the Peek/Get surface
// offers (a status handler rendering queue depth, for instance).
func (k *Kernel) GetResourceTaskBuffer(rt ResourceType, isTx bool) (*ring.Buffer, bool) {
	if !k.checkResourceTaskTypeValidity(rt) {
		return nil, false
	}
	idx := 2*rt + 1
	if isTx {
		idx = 2 * rt
	}
	return k.resourceBuffers[idx], true
}

// GetResourceTaskBufferFlags returns the owning task's next-claimer flag
// bytes, for diagnostics.
func (k *Kernel) GetResourceTaskBufferFlags(rt ResourceType) ([]byte, bool) {
	if !k.checkResourceTaskTypeValidity(rt) {
		return nil, false
	}
	return k.tasks[k.resourceTaskList[rt]].info.Action.Flags, true
}
