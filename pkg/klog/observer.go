// Package klog adapts the kernel's Observer callbacks to structured zap
// logging, the way the original ISOS debug build printed the same events to
// a UART console.
package klog

import (
	"go.uber.org/zap"

	"isokernel/pkg/kernel"
	"isokernel/pkg/task"
)

// Observer logs every kernel scheduling and arbitration event through a
// *zap.Logger. It decorates nothing and delegates to nothing else — it is a
// terminal Observer, the way loggingRecorder in the teacher repo decorates a
// metrics recorder but this one simply records.
type Observer struct {
	logger *zap.Logger
}

// New constructs a logging Observer. A nil logger is replaced with zap.NewNop
// so callers never need a nil check.
func New(logger *zap.Logger) *Observer {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Observer{logger: logger}
}

func taskStateString(s task.State) string {
	switch s {
	case task.Undefined:
		return "undefined"
	case task.Initial:
		return "initial"
	case task.Running:
		return "running"
	case task.Suspended:
		return "suspended"
	case task.Failed:
		return "failed"
	case task.Success:
		return "success"
	case task.Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

func (o *Observer) TaskQueued(id task.ID, priority byte) {
	o.logger.Debug("task queued",
		zap.Uint8("taskId", id),
		zap.Uint8("priority", priority),
	)
}

func (o *Observer) TaskStateChanged(id task.ID, from, to task.State) {
	o.logger.Info("task state changed",
		zap.Uint8("taskId", id),
		zap.String("from", taskStateString(from)),
		zap.String("to", taskStateString(to)),
	)
}

func (o *Observer) TaskTimedOut(id task.ID) {
	o.logger.Warn("task timed out", zap.Uint8("taskId", id))
}

func (o *Observer) WaitStarted(id task.ID) {
	o.logger.Debug("task suspended", zap.Uint8("taskId", id))
}

func (o *Observer) WaitEnded(id task.ID) {
	o.logger.Debug("task resumed", zap.Uint8("taskId", id))
}

func (o *Observer) ResourceClaimed(rt kernel.ResourceType, claimer task.ID) {
	o.logger.Info("resource claimed",
		zap.Int("resourceType", int(rt)),
		zap.Uint8("claimer", claimer),
	)
}

func (o *Observer) ResourceClaimDenied(rt kernel.ResourceType, claimer task.ID, reason string) {
	o.logger.Debug("resource claim denied",
		zap.Int("resourceType", int(rt)),
		zap.Uint8("claimer", claimer),
		zap.String("reason", reason),
	)
}

func (o *Observer) ResourceReleased(rt kernel.ResourceType) {
	o.logger.Info("resource released", zap.Int("resourceType", int(rt)))
}

func (o *Observer) ResourceTypeInvalid(rt kernel.ResourceType) {
	o.logger.Warn("resource type invalid", zap.Int("resourceType", int(rt)))
}

func (o *Observer) SortRequested(dueSize int) {
	o.logger.Debug("due list sorted", zap.Int("dueSize", dueSize))
}

var _ kernel.Observer = (*Observer)(nil)
