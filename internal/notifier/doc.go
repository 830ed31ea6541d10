// Package notifier delivers short text notifications to the single chat the
// daemon reports to.
//
// Delivery is synchronous: Send returns only once the message was accepted by
// the transport or the attempt failed. Sends are throttled by a token bucket
// and bounded by a per-send timeout. A failed send is logged and reported to
// the caller; it is never retried here.
//
// # History
//
// For debugging and operator visibility, the service keeps a small in-memory
// history of recently delivered notifications.
package notifier
