// Package stream implements driven.StreamConnector over WebSocket.
//
// One connection is opened per account. The server speaks a small JSON
// protocol on the "threadsearch-v1" subprotocol:
//
//	{"type":"batch","threads":[...]}   a batch of result rows
//	{"type":"error","message":"..."}   a transient server-side problem
//	{"type":"ping"}                    keep-alive
//	{"type":"end"}                     no more results will follow
//
// A connection reports Open once the handshake succeeds, Errored for
// error frames, Ended on an end frame and Closed when the socket drops or
// End is called. Only one terminal status is ever reported.
package stream
