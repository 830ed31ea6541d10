// Package errkind defines the failure taxonomy shared by the poll loop and its
// collaborators. Components tag errors with one of the sentinels below and the
// poll loop classifies them with errors.Is.
package errkind

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingConfiguration       = errors.New("missing configuration")
	ErrEndpointUnavailable        = errors.New("endpoint unavailable")
	ErrMalformedResponse          = errors.New("malformed response")
	ErrMalformedItem              = errors.New("malformed homework item")
	ErrUnknownStatus              = errors.New("unknown homework status")
	ErrNoUpdates                  = errors.New("no updates")
	ErrNotificationDeliveryFailed = errors.New("notification delivery failed")
)

// Kind is a stable, log-friendly name for a taxonomy member.
type Kind string

const (
	KindNone                 Kind = ""
	KindMissingConfiguration Kind = "missing_configuration"
	KindEndpointUnavailable  Kind = "endpoint_unavailable"
	KindMalformedResponse    Kind = "malformed_response"
	KindMalformedItem        Kind = "malformed_item"
	KindUnknownStatus        Kind = "unknown_status"
	KindNoUpdates            Kind = "no_updates"
	KindDeliveryFailed       Kind = "delivery_failed"
	KindCanceled             Kind = "canceled"
	KindUnexpected           Kind = "unexpected"
)

var kinds = []struct {
	marker error
	kind   Kind
}{
	{ErrMissingConfiguration, KindMissingConfiguration},
	{ErrEndpointUnavailable, KindEndpointUnavailable},
	{ErrMalformedResponse, KindMalformedResponse},
	{ErrMalformedItem, KindMalformedItem},
	{ErrUnknownStatus, KindUnknownStatus},
	{ErrNoUpdates, KindNoUpdates},
	{ErrNotificationDeliveryFailed, KindDeliveryFailed},
}

// Wrap builds an error message that includes operation context while tagging it
// with marker for later classification. marker should be one of the sentinels above.
func Wrap(marker error, op, message string, err error) error {
	detail := buildDetail(op, message)
	if marker == nil {
		if err != nil {
			return fmt.Errorf("%s: %w", detail, err)
		}
		return errors.New(detail)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify returns the taxonomy member err matches. Joined errors classify by
// whichever of their members comes first in the taxonomy order above.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.marker) {
			return k.kind
		}
	}
	if isCanceled(err) {
		return KindCanceled
	}
	return KindUnexpected
}

// Recoverable reports whether the poll loop should keep running after err.
// Only a missing configuration is fatal, and it can only happen at startup.
func Recoverable(err error) bool {
	return err != nil && !errors.Is(err, ErrMissingConfiguration)
}

// UserVisible reports whether err warrants a diagnostic message in the chat.
func UserVisible(err error) bool {
	if err == nil {
		return false
	}
	switch Classify(err) {
	case KindNoUpdates, KindDeliveryFailed, KindCanceled:
		return false
	}
	return true
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func buildDetail(op, message string) string {
	parts := make([]string, 0, 2)
	if op = strings.TrimSpace(op); op != "" {
		parts = append(parts, op)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}
