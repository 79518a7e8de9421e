package main

import (
	"context"
	"time"

	"isokernel/pkg/kernel"
)

// Runner drives the kernel for as long as ctx stays alive.
type Runner interface {
	Run(ctx context.Context) error
}

// CooperativeRunner ticks the kernel's clock at DefaultTickResolution and
// invokes a full scheduler+execute pass every SchedulerPeriod, the way a
// flight computer's main loop calls the tick ISR far more often than it
// calls the scheduler itself.
type CooperativeRunner struct {
	kernel          *kernel.Kernel
	ticks           *tickSource
	schedulerPeriod time.Duration
}

// NewCooperativeRunner constructs a Runner bound to k, running a scheduler
// pass every schedulerPeriod.
func NewCooperativeRunner(k *kernel.Kernel, schedulerPeriod time.Duration) *CooperativeRunner {
	if schedulerPeriod <= 0 {
		schedulerPeriod = DefaultTickResolution
	}

	return &CooperativeRunner{
		kernel:          k,
		ticks:           newTickSource(DefaultTickResolution),
		schedulerPeriod: schedulerPeriod,
	}
}

// Run ticks and schedules until ctx is done, then reports ctx's error.
func (r *CooperativeRunner) Run(ctx context.Context) error {
	var elapsed time.Duration

	r.ticks.run(ctx, func() {
		r.kernel.Tick()
		elapsed += DefaultTickResolution

		if elapsed >= r.schedulerPeriod {
			elapsed -= r.schedulerPeriod
			r.kernel.Run()
		}
	})

	return ctx.Err()
}
