package checkin

// TagEvent is one input to the scan flow. Manual marks an operator-typed tag
// id; it is an explicit variant rather than a platform dialog fallback, so
// the engine stays UI-agnostic.
type TagEvent struct {
	TagID     string    `json:"tag_id"`
	Direction Direction `json:"direction"`
	Manual    bool      `json:"manual"`
}

// TagEventSource feeds scan inputs to the engine. Implementations wrap a
// hardware reader or a manual-entry form; Close releases the underlying
// device or listener.
type TagEventSource interface {
	Events() <-chan TagEvent
	Close() error
}
