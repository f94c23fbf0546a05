package services

import (
	"context"

	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
	"github.com/custodia-labs/threadsearch/internal/logger"
)

// ExtensionFeed relays one contributor's ID batches for a query.
type ExtensionFeed struct {
	contributor driven.SearchContributor
	query       string
}

func newExtensionFeed(contributor driven.SearchContributor, query string) *ExtensionFeed {
	return &ExtensionFeed{contributor: contributor, query: query}
}

// Name returns the contributor name.
func (f *ExtensionFeed) Name() string {
	return f.contributor.Name()
}

// Run subscribes to the contributor and calls emit with every non-empty
// flattened batch until the stream ends or ctx is cancelled.
// Errors and panics raised by the contributor are logged and end only
// this feed.
func (f *ExtensionFeed) Run(ctx context.Context, emit func(ids []string)) {
	name := f.safeName()
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Search contributor %s panicked: %v", name, r)
		}
	}()

	batches, err := f.contributor.ObserveIDsForQuery(ctx, f.query)
	if err != nil {
		logger.Warn("Search contributor %s failed: %v", name, err)
		return
	}
	if batches == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-batches:
			if !ok {
				logger.Debug("Search contributor %s finished", name)
				return
			}
			ids := FlattenIDs(batch)
			if len(ids) == 0 {
				continue
			}
			emit(ids)
		}
	}
}

func (f *ExtensionFeed) safeName() (name string) {
	defer func() {
		if recover() != nil {
			name = "unknown"
		}
	}()
	return f.contributor.Name()
}

// FlattenIDs drops nil and empty entries from a contributor batch.
func FlattenIDs(batch []*string) []string {
	ids := make([]string, 0, len(batch))
	for _, id := range batch {
		if id == nil || *id == "" {
			continue
		}
		ids = append(ids, *id)
	}
	return ids
}
