package kernel

import (
	"testing"

	"isokernel/pkg/clock"
	"isokernel/pkg/task"
)

func TestExecuteTransitionsInitialToRunningThenSucceeds(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	k := New(testConfig(), obs)

	id, _ := k.RegisterNonCyclicalTask(true, clock.Clock{}, clock.Clock{}, 10, succeedAfter(2))
	k.queueOnDue(&k.tasks[id].info, k.mainClock)

	finished := k.execute(0)
	if finished {
		t.Fatal("expected task still running after first execute")
	}
	if k.tasks[id].info.Action.State != task.Running {
		t.Fatalf("expected Running after first execute, got %v", k.tasks[id].info.Action.State)
	}

	finished = k.execute(0)
	if !finished {
		t.Fatal("expected task to finish on second execute")
	}
	if k.tasks[id].info.Action.State != task.Success {
		t.Fatalf("expected Success, got %v", k.tasks[id].info.Action.State)
	}
	if len(k.dueList) != 0 {
		t.Fatalf("expected task dequeued after finishing, due size %d", len(k.dueList))
	}

	wantTransitions := []stateChange{
		{id: id, from: task.Initial, to: task.Running},
		{id: id, from: task.Running, to: task.Success},
	}
	if len(obs.stateChanges) != len(wantTransitions) {
		t.Fatalf("expected %d transitions, got %+v", len(wantTransitions), obs.stateChanges)
	}
	for i, want := range wantTransitions {
		if obs.stateChanges[i] != want {
			t.Fatalf("transition %d: expected %+v, got %+v", i, want, obs.stateChanges[i])
		}
	}
}

func TestExecuteHonorsSuspensionUntilDue(t *testing.T) {
	t.Parallel()

	k := New(testConfig(), nil)

	id, _ := k.RegisterNonCyclicalTask(true, clock.Clock{}, clock.Clock{}, 10, func(_ task.ID, action *task.ActionInfo) {
		action.State = task.Success
	})
	k.queueOnDue(&k.tasks[id].info, k.mainClock)

	info := &k.tasks[id].info
	info.Action.State = task.Suspended
	info.SuspensionDue = clock.New(0, 10)

	if finished := k.execute(0); finished {
		t.Fatal("expected suspended task not to run before its due time")
	}
	if info.Action.State != task.Suspended {
		t.Fatalf("expected task to remain suspended, got %v", info.Action.State)
	}

	for i := 0; i < 10; i++ {
		k.Tick()
	}

	if finished := k.execute(0); !finished {
		t.Fatal("expected task to run and finish once its suspension elapsed")
	}
	if info.Action.State != task.Success {
		t.Fatalf("expected Success after resuming, got %v", info.Action.State)
	}
}

func TestExecuteForcesTimeoutWhenDeadlinePasses(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	k := New(testConfig(), obs)

	id, _ := k.RegisterNonCyclicalTask(true, clock.Clock{}, clock.New(0, 5), 10, succeedAfter(1000))
	k.queueOnDue(&k.tasks[id].info, k.mainClock)

	// First execute transitions Initial -> Running and records LastExecuted.
	if finished := k.execute(0); finished {
		t.Fatal("expected task still running")
	}

	for i := 0; i < 6; i++ {
		k.Tick()
	}

	if finished := k.execute(0); !finished {
		t.Fatal("expected timed-out task to be dequeued")
	}
	if k.tasks[id].info.Action.State != task.Timeout {
		t.Fatalf("expected Timeout, got %v", k.tasks[id].info.Action.State)
	}
	if len(obs.timedOut) != 1 || obs.timedOut[0] != id {
		t.Fatalf("expected TaskTimedOut observed for %d, got %+v", id, obs.timedOut)
	}
}

func TestExecuteReleasesClaimedResourceWhenTaskFinishes(t *testing.T) {
	t.Parallel()

	k := New(testConfig(), nil)

	const rt ResourceType = 0
	_, _ = k.RegisterResourceTask(rt, clock.Clock{}, 5, succeedAfter(1000))

	claimerID, _ := k.RegisterNonCyclicalTask(true, clock.Clock{}, clock.Clock{}, 20, func(_ task.ID, action *task.ActionInfo) {
		action.State = task.Success
	})

	if !k.ClaimResourceTask(rt, claimerID, 20) {
		t.Fatal("expected claim to succeed on a free resource")
	}

	k.queueOnDue(&k.tasks[claimerID].info, k.mainClock)
	if finished := k.execute(0); !finished {
		t.Fatal("expected claimer task to finish immediately")
	}

	if _, held := k.ResourceClaimer(rt); held {
		t.Fatal("expected resource to be released once its claimer finished")
	}
}

func TestExecuteSuspendedActionReportsWaitStarted(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	k := New(testConfig(), obs)

	id, _ := k.RegisterNonCyclicalTask(true, clock.Clock{}, clock.Clock{}, 10, func(taskID task.ID, action *task.ActionInfo) {
		action.State = task.Suspended
	})
	k.queueOnDue(&k.tasks[id].info, k.mainClock)

	if finished := k.execute(0); finished {
		t.Fatal("expected a newly suspended task not to be dequeued")
	}
	if len(obs.waitStarted) != 1 || obs.waitStarted[0] != id {
		t.Fatalf("expected WaitStarted observed for %d, got %+v", id, obs.waitStarted)
	}
}
