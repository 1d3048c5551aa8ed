package bridge

import "fmt"

// Direction names which way a message is relayed.
type Direction string

const (
	TelegramToDiscord Direction = "telegram->discord"
	DiscordToTelegram Direction = "discord->telegram"
)

type Status int

const (
	StatusDelivered Status = iota + 1
	StatusDropped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDelivered:
		return "delivered"
	case StatusDropped:
		return "dropped"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// DropReason says why a message was intentionally not relayed.
type DropReason string

const (
	ReasonUnmappedTopic DropReason = "unmapped_topic"
	ReasonSelfAuthored  DropReason = "self_authored"
	ReasonEmpty         DropReason = "empty"
)

// Result is the outcome of relaying one inbound message.
type Result struct {
	Status Status
	Reason DropReason // set when Status is StatusDropped
	Err    error      // set when Status is StatusFailed
	// Sends counts outbound messages actually posted, fallback notices
	// included.
	Sends    int
	Fallback bool
}

func delivered(sends int) Result {
	return Result{Status: StatusDelivered, Sends: sends}
}

func dropped(reason DropReason) Result {
	return Result{Status: StatusDropped, Reason: reason}
}

func failed(err error, sends int, fallback bool) Result {
	return Result{Status: StatusFailed, Err: err, Sends: sends, Fallback: fallback}
}

func (r Result) fields() map[string]any {
	f := map[string]any{
		"status": r.Status.String(),
		"sends":  r.Sends,
	}
	if r.Reason != "" {
		f["reason"] = string(r.Reason)
	}
	if r.Err != nil {
		f["error"] = r.Err.Error()
	}
	if r.Fallback {
		f["fallback"] = true
	}
	return f
}
