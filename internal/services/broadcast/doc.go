// Package broadcast delivers a rendered notice to every eligible subscriber.
//
// Delivery is best-effort and sequential. Each send waits on a shared rate
// limiter, a failed send is logged and recorded as a TransportError, and the
// loop moves on to the next recipient. Nothing is retried within a job.
//
// Every call to Broadcast is tracked as a JobStatus so that operator commands
// can report on recent deliveries. Status memory is bounded by count and age.
package broadcast
