package notifier

import "errors"

var (
	errNoSender = errors.New("notifier has no sender")
	errNoTarget = errors.New("notifier has no target chat")
)
