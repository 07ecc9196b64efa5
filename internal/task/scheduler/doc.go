// Package scheduler drives a single periodic job.
//
// A Scheduler is Idle or Running. It sleeps on an injected Clock until the
// next activation of its schedule (or an explicit Trigger), runs the job with
// an optional timeout, and returns to Idle. A failed or panicking cycle is
// logged and never stops the loop; only context cancellation does.
package scheduler
