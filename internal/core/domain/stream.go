package domain

// StreamStatus is the lifecycle state reported by a streaming connection.
type StreamStatus string

// Stream statuses. Only Closed and Ended are terminal.
const (
	StreamConnecting StreamStatus = "connecting"
	StreamOpen       StreamStatus = "open"
	StreamErrored    StreamStatus = "errored"
	StreamClosed     StreamStatus = "closed"
	StreamEnded      StreamStatus = "ended"
)

// IsTerminal reports whether no further results will follow this status.
func (s StreamStatus) IsTerminal() bool {
	return s == StreamClosed || s == StreamEnded
}

// String returns the string representation.
func (s StreamStatus) String() string {
	return string(s)
}
