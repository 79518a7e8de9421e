package main

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"isokernel/pkg/clock"
	"isokernel/pkg/kernel"
	"isokernel/pkg/task"
)

// demoRadioResource is the one claimable resource this demonstration wires
// up: a simulated half-duplex radio link.
const demoRadioResource kernel.ResourceType = 0

const (
	priorityHeartbeat   = 10
	priorityOneShot     = 20
	priorityRadioClaim  = 30
	priorityRadioDriver = 40
)

var errRadioClaimDenied = errors.New("isokernel: radio claim denied")

// registerDemoTasks wires up a small illustrative task set: a periodic
// heartbeat, a one-shot startup task, and a claim/release pair around a
// simulated radio resource whose claim attempts are guarded by a circuit
// breaker so a jammed link doesn't spin the claimer every period.
func registerDemoTasks(k *kernel.Kernel, logger *zap.Logger) error {
	_, ok := k.RegisterResourceTaskWithBuffers(
		demoRadioResource,
		clock.New(0, 2000),
		priorityRadioDriver,
		radioDriverAction(k, logger),
		64,
		64,
	)
	if !ok {
		return errors.New("isokernel: register radio resource task")
	}

	if _, ok := k.RegisterPeriodicTask(true, clock.New(0, 1000), clock.Clock{}, priorityHeartbeat, heartbeatAction(logger)); !ok {
		return errors.New("isokernel: register heartbeat task")
	}

	if _, ok := k.RegisterNonCyclicalTask(true, clock.New(0, 5000), clock.Clock{}, priorityOneShot, oneShotAction(logger)); !ok {
		return errors.New("isokernel: register one-shot task")
	}

	breaker := gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{ //nolint:exhaustruct // zero-value fields use gobreaker's own defaults
		Name:    "radio-claim",
		Timeout: 5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	if _, ok := k.RegisterLooselyRepeatedTask(
		true,
		clock.New(0, 500),
		clock.Clock{},
		priorityRadioClaim,
		radioClaimAction(k, breaker, logger),
	); !ok {
		return errors.New("isokernel: register radio claimer task")
	}

	return nil
}

func heartbeatAction(logger *zap.Logger) kernel.ActionFunc {
	return func(id task.ID, action *task.ActionInfo) {
		logger.Debug("heartbeat", zap.Uint8("taskId", id))
		action.State = task.Success
	}
}

func oneShotAction(logger *zap.Logger) kernel.ActionFunc {
	return func(id task.ID, action *task.ActionInfo) {
		logger.Info("one-shot startup task running", zap.Uint8("taskId", id))
		action.State = task.Success
	}
}

// radioDriverAction simulates a radio link: it drains whatever bytes a
// claimer queued on Tx and echoes them back on Rx. A real driver would do an
// actual UART transfer here instead.
func radioDriverAction(k *kernel.Kernel, logger *zap.Logger) kernel.ActionFunc {
	return func(id task.ID, action *task.ActionInfo) {
		tx, ok := k.GetResourceTaskBuffer(demoRadioResource, true)
		if !ok {
			action.State = task.Success
			return
		}

		rx, ok := k.GetResourceTaskBuffer(demoRadioResource, false)
		if !ok {
			action.State = task.Success
			return
		}

		if size := tx.DataSize(); size > 0 {
			data, ok := tx.Gets(size)
			if ok {
				rx.Puts(data)
				logger.Debug("radio transmitted", zap.Uint8("taskId", id), zap.Int("bytes", len(data)))
			}
		}

		action.State = task.Success
	}
}

// radioClaimAction attempts to claim the radio, send a short ping, and
// release it, all guarded by breaker so repeated claim denials (the radio
// held by a higher-priority task) trip the breaker and back off instead of
// retrying every period. A successful claim enables and queues the radio
// driver task itself (see ClaimResourceTask/handleLastClaimedResource) to run
// later in this same pass.
func radioClaimAction(
	k *kernel.Kernel,
	breaker *gobreaker.CircuitBreaker[bool],
	logger *zap.Logger,
) kernel.ActionFunc {
	return func(id task.ID, action *task.ActionInfo) {
		_, err := breaker.Execute(func() (bool, error) {
			if !k.ClaimResourceTask(demoRadioResource, id, priorityRadioClaim) {
				return false, errRadioClaimDenied
			}
			return true, nil
		})
		if err != nil {
			logger.Debug("radio claim skipped", zap.Uint8("taskId", id), zap.Error(err))
			action.State = task.Success
			return
		}

		k.PrepareResourceTaskTx(demoRadioResource, []byte("ping"))
		k.ReleaseResourceTask(demoRadioResource)

		action.State = task.Success
	}
}
