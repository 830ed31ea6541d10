// Package homework validates homework status API payloads and turns tracked
// items into the chat messages the bot sends.
//
// The decoded payload is handled as plain JSON values (map[string]any, []any)
// rather than structs so that structural problems in the response can be told
// apart precisely: a missing key, a key of the wrong type and an empty list are
// different failures.
package homework

// Status codes reported by the homework statuses API.
const (
	StatusApproved  = "approved"
	StatusReviewing = "reviewing"
	StatusRejected  = "rejected"
)

// Payload keys.
const (
	KeyHomeworks   = "homeworks"
	KeyCurrentDate = "current_date"
	KeyName        = "homework_name"
	KeyStatus      = "status"
)

// Item is one tracked homework submission.
type Item struct {
	Name   string
	Status string
}
