package homework

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"hwbot/internal/errkind"
)

// CheckResponse verifies the structure of a decoded API payload and returns
// the raw tracked items. Items are not validated individually here.
//
// An empty item list is reported as errkind.ErrNoUpdates, which is an expected
// condition rather than a failure.
func CheckResponse(body any) ([]any, error) {
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, errkind.Wrap(errkind.ErrMalformedResponse, "check response",
			fmt.Sprintf("expected a JSON object, got %s", jsonKind(body)), nil)
	}
	raw, ok := obj[KeyHomeworks]
	if !ok {
		return nil, errkind.Wrap(errkind.ErrMalformedResponse, "check response",
			fmt.Sprintf("key %q is missing", KeyHomeworks), nil)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, errkind.Wrap(errkind.ErrMalformedResponse, "check response",
			fmt.Sprintf("key %q must be a list, got %s", KeyHomeworks, jsonKind(raw)), nil)
	}
	if len(items) == 0 {
		return nil, errkind.ErrNoUpdates
	}
	return items, nil
}

// CurrentDate extracts the server-side "current_date" unix timestamp, which is
// the natural next value for the poll cursor.
func CurrentDate(body any) (int64, bool) {
	obj, ok := body.(map[string]any)
	if !ok {
		return 0, false
	}
	var ts int64
	switch v := obj[KeyCurrentDate].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		ts = n
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		ts = int64(v)
	case int64:
		ts = v
	case int:
		ts = int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		ts = n
	default:
		return 0, false
	}
	if ts <= 0 {
		return 0, false
	}
	return ts, true
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "list"
	case string:
		return "string"
	case bool:
		return "bool"
	case json.Number, float64, int, int64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
