// Package poller runs the fetch, validate, translate and notify loop.
//
// Each iteration fetches status changes since the cursor, validates the
// response, translates every returned item in order and notifies the chat
// about items whose status differs from the last delivered one. Any failure
// is logged and reported to the chat as a diagnostic; the loop itself never
// stops on an iteration failure and waits one schedule tick between
// iterations.
//
// # Cursor
//
// The cursor is the from_date sent with every fetch. It only moves after an
// iteration in which every item was translated and delivered, to the
// response's current_date (or the fetch time when that is absent).
package poller
