package core

// Conn is one live participant's communication handle as seen by the
// core layer. Send must be safe for concurrent use and should fail fast
// instead of blocking when the peer cannot keep up.
type Conn interface {
	Send(msg Message) error
}

// Membership binds a connection to a room from Join until Leave.
type Membership struct {
	Token string
	Name  string
}

// SendOutcome reports one recipient's result from a fan-out.
type SendOutcome struct {
	Token string
	Name  string
	Err   error
}
