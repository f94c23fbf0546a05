package services

import (
	"net/url"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
	"github.com/custodia-labs/threadsearch/internal/logger"
)

// StreamingSearchPath returns the server path for a streaming search.
func StreamingSearchPath(query string) string {
	return "/search/streaming?q=" + url.QueryEscape(query)
}

// RemoteStreamSource tracks one account's streaming search.
//
// Its state only changes through Apply* calls made from the owning
// session's event loop.
type RemoteStreamSource struct {
	accountID string
	conn      driven.StreamConnection

	status      domain.StreamStatus
	finished    bool
	closed      bool
	resultCount int
}

func newRemoteStreamSource(accountID string, conn driven.StreamConnection) *RemoteStreamSource {
	return &RemoteStreamSource{
		accountID: accountID,
		conn:      conn,
		status:    domain.StreamConnecting,
	}
}

// AccountID returns the account this source streams from.
func (r *RemoteStreamSource) AccountID() string { return r.accountID }

// Status returns the last status applied.
func (r *RemoteStreamSource) Status() domain.StreamStatus { return r.status }

// Finished reports whether a terminal status has been seen.
func (r *RemoteStreamSource) Finished() bool { return r.finished }

// ResultCount returns the number of rows received.
func (r *RemoteStreamSource) ResultCount() int { return r.resultCount }

// ApplyBatch counts rows delivered by the connection. Batches after a
// terminal status are ignored and ApplyBatch returns false.
func (r *RemoteStreamSource) ApplyBatch(threads []domain.Thread) bool {
	if r.finished {
		return false
	}
	r.resultCount += len(threads)
	return true
}

// ApplyStatus records a status change and reports whether it moved the
// source into a terminal state for the first time.
func (r *RemoteStreamSource) ApplyStatus(status domain.StreamStatus) bool {
	if r.finished {
		return false
	}
	r.status = status
	if !status.IsTerminal() {
		return false
	}
	r.finished = true
	r.release()
	return true
}

// Close releases the connection. Closing before a terminal status does not
// finish the source. Safe to call repeatedly; failures are logged.
func (r *RemoteStreamSource) Close() {
	r.release()
}

func (r *RemoteStreamSource) release() {
	if r.closed || r.conn == nil {
		return
	}
	r.closed = true

	defer func() {
		if p := recover(); p != nil {
			logger.Warn("Closing stream for %s panicked: %v", r.accountID, p)
		}
	}()
	if err := r.conn.End(); err != nil {
		logger.Warn("Closing stream for %s: %v", r.accountID, err)
	}
}
