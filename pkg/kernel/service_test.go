package kernel

import (
	"testing"

	"isokernel/pkg/clock"
	"isokernel/pkg/task"
)

func TestRunExecutesHighestPriorityTaskFirst(t *testing.T) {
	t.Parallel()

	var order []task.ID

	recordOrder := func(id task.ID) ActionFunc {
		return func(taskID task.ID, action *task.ActionInfo) {
			order = append(order, taskID)
			action.State = task.Success
		}
	}

	k := New(testConfig(), nil)

	lowID, _ := k.RegisterNonCyclicalTask(true, clock.Clock{}, clock.Clock{}, 10, recordOrder(0))
	highID, _ := k.RegisterNonCyclicalTask(true, clock.Clock{}, clock.Clock{}, 50, recordOrder(1))
	midID, _ := k.RegisterNonCyclicalTask(true, clock.Clock{}, clock.Clock{}, 30, recordOrder(2))

	k.Run()

	want := []task.ID{highID, midID, lowID}
	if len(order) != len(want) {
		t.Fatalf("expected %d executions, got %+v", len(want), order)
	}
	for i, id := range want {
		if order[i] != id {
			t.Fatalf("expected execution order %+v, got %+v", want, order)
		}
	}

	if k.DueSize() != 0 {
		t.Fatalf("expected due list drained after Run, got size %d", k.DueSize())
	}
}

func TestRunExecutesClaimedResourceTaskWithinSamePass(t *testing.T) {
	t.Parallel()

	ran := false

	k := New(testConfig(), nil)

	const rt ResourceType = 0
	_, _ = k.RegisterResourceTask(rt, clock.Clock{}, 40, func(_ task.ID, action *task.ActionInfo) {
		ran = true
		action.State = task.Success
	})

	_, _ = k.RegisterNonCyclicalTask(true, clock.Clock{}, clock.Clock{}, 20, func(id task.ID, action *task.ActionInfo) {
		if !k.ClaimResourceTask(rt, id, 20) {
			t.Fatal("expected claim on a free resource to succeed")
		}
		action.State = task.Success
	})

	k.Run()

	if !ran {
		t.Fatal("expected the newly claimed resource task to execute within the same pass as its claim")
	}
	if k.DueSize() != 0 {
		t.Fatalf("expected due list drained after the pass, got size %d", k.DueSize())
	}
}

func TestRunReQueuesPeriodicTaskOnItsNextPeriod(t *testing.T) {
	t.Parallel()

	runs := 0

	k := New(testConfig(), nil)

	id, _ := k.RegisterPeriodicTask(true, clock.New(0, 10), clock.Clock{}, 10, func(_ task.ID, action *task.ActionInfo) {
		runs++
		action.State = task.Success
	})

	// The first period anchors from registration time (LastDueReported=0),
	// so the task isn't due until t=10, not t=0.
	for i := 0; i < 9; i++ {
		k.Run()
		k.Tick()
	}
	if runs != 0 {
		t.Fatalf("expected no runs before t=10, got %d", runs)
	}

	k.Tick()
	k.Run()
	if runs != 1 {
		t.Fatalf("expected one run once the first period elapsed, got %d", runs)
	}

	// Cyclical tasks are left in their terminal state between periods — only
	// Resource and NonCyclical tasks get disabled on finish.
	if info := k.tasks[id].info; info.Action.State != task.Success || !info.Action.Enabled {
		t.Fatalf("expected task left Success and enabled between periods, got %+v", info.Action)
	}

	for i := 0; i < 9; i++ {
		k.Tick()
		k.Run()
	}
	if runs != 1 {
		t.Fatalf("expected task not yet due again before its second period elapses, got %d runs", runs)
	}

	k.Tick()
	k.Run()
	if runs != 2 {
		t.Fatalf("expected second run once the period elapsed again, got %d runs", runs)
	}
}

func TestWaitSuspendsImmediatelyRelativeToCurrentClock(t *testing.T) {
	t.Parallel()

	k := New(testConfig(), nil)

	id, _ := k.RegisterNonCyclicalTask(true, clock.Clock{}, clock.Clock{}, 10, succeedAfter(1))

	for i := 0; i < 3; i++ {
		k.Tick()
	}

	k.Wait(id, clock.New(0, 5))

	info := k.tasks[id].info
	if info.Action.State != task.Suspended {
		t.Fatalf("expected Wait to set Suspended directly, got %v", info.Action.State)
	}
	if info.SuspensionDue != clock.New(0, 8) {
		t.Fatalf("expected SuspensionDue at t=8, got %+v", info.SuspensionDue)
	}
}

func TestWaitFromSuspensionTimeReusesStashedDuration(t *testing.T) {
	t.Parallel()

	k := New(testConfig(), nil)

	id, _ := k.RegisterNonCyclicalTask(true, clock.Clock{}, clock.Clock{}, 10, succeedAfter(1))

	k.tasks[id].info.SuspensionWait = clock.New(0, 50)

	for i := 0; i < 150; i++ {
		k.Tick()
	}

	k.WaitFromSuspensionTime(id)

	info := k.tasks[id].info
	if info.Action.State != task.Suspended {
		t.Fatalf("expected Suspended, got %v", info.Action.State)
	}
	if info.SuspensionDue != clock.New(0, 200) {
		t.Fatalf("expected SuspensionDue at t=200 (150+50), got %+v", info.SuspensionDue)
	}
}
