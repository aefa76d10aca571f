package core

// Message is the domain model for a broadcast message.
// Timestamp is milliseconds since epoch and doubles as the history sort
// key; it is zero for membership notices, which are never logged.
type Message struct {
	Body      string
	Name      string
	Timestamp int64
}
