// Package status renders the kernel's scheduling state as JSON for an
// operator or a ground-station poller.
package status

import (
	"encoding/json"
	"net/http"

	"isokernel/pkg/clock"
	"isokernel/pkg/kernel"
	"isokernel/pkg/task"
)

// Snapshotter exposes the kernel surface the handler needs, so tests can
// substitute a stub instead of a full Kernel.
type Snapshotter interface {
	Clock() clock.Clock
	TaskSize() int
	TaskInfo(id task.ID) (task.Info, bool)
	DueSize() int
}

// TaskSnapshot describes one registered task's externally visible state.
type TaskSnapshot struct {
	ID       task.ID `json:"id"`
	Priority byte    `json:"priority"`
	State    string  `json:"state"`
	Enabled  bool    `json:"enabled"`
}

// Snapshot captures the kernel's overall scheduling status.
type Snapshot struct {
	ClockDay int64          `json:"clockDay"`
	ClockMs  int32          `json:"clockMs"`
	DueSize  int            `json:"dueSize"`
	Tasks    []TaskSnapshot `json:"tasks"`
}

// Handler renders kernel status as JSON.
type Handler struct {
	kernel Snapshotter
}

// NewHandler constructs a Handler that proxies kernel status.
func NewHandler(kernel Snapshotter) *Handler {
	return &Handler{kernel: kernel}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(writer http.ResponseWriter, _ *http.Request) {
	if h == nil || h.kernel == nil {
		http.Error(writer, "kernel unavailable", http.StatusServiceUnavailable)

		return
	}

	main := h.kernel.Clock()
	snapshot := Snapshot{
		ClockDay: int64(main.Day),
		ClockMs:  main.Ms,
		DueSize:  h.kernel.DueSize(),
		Tasks:    make([]TaskSnapshot, 0, h.kernel.TaskSize()),
	}

	for i := 0; i < h.kernel.TaskSize(); i++ {
		info, ok := h.kernel.TaskInfo(task.ID(i))
		if !ok {
			continue
		}

		snapshot.Tasks = append(snapshot.Tasks, TaskSnapshot{
			ID:       info.ID,
			Priority: info.Priority,
			State:    taskStateString(info.Action.State),
			Enabled:  info.Action.Enabled,
		})
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		http.Error(writer, "marshal status", http.StatusInternalServerError)

		return
	}

	writer.Header().Set("Content-Type", "application/json")
	_, _ = writer.Write(payload)
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

var _ Snapshotter = (*kernel.Kernel)(nil)
