// Package redisfeed is a search contributor backed by Redis.
//
// Thread IDs relevant to a query live in the set
// "threadsearch:ids:<normalized query>". The contributor first emits the
// set's current members, then relays messages published on a channel of
// the same name. Each message is a JSON array whose entries are thread
// IDs or null.
package redisfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
	"github.com/custodia-labs/threadsearch/internal/logger"
)

// KeyPrefix prefixes every set and channel name.
const KeyPrefix = "threadsearch:ids:"

// Name is the contributor name.
const Name = "redis"

// batchBuffer is the output channel capacity.
const batchBuffer = 16

// Ensure Contributor implements the interface.
var _ driven.SearchContributor = (*Contributor)(nil)

// Contributor streams thread IDs from Redis.
type Contributor struct {
	client *redis.Client
	limit  rate.Limit
	owned  bool
}

// New creates a contributor over an existing client. perSecond throttles
// relayed batches; zero or less disables throttling.
func New(client *redis.Client, perSecond float64) *Contributor {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Contributor{client: client, limit: limit}
}

// NewFromAddr creates a contributor with its own client for addr.
func NewFromAddr(addr string, perSecond float64) *Contributor {
	c := New(redis.NewClient(&redis.Options{Addr: addr}), perSecond)
	c.owned = true
	return c
}

// Name implements driven.SearchContributor.
func (c *Contributor) Name() string { return Name }

// Key returns the set and channel name for query. Queries are
// lower-cased and whitespace is collapsed.
func Key(query string) string {
	return KeyPrefix + strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// ObserveIDsForQuery subscribes before reading the set, so no message
// published in between is lost. The returned channel closes when ctx is
// cancelled or the subscription drops.
func (c *Contributor) ObserveIDsForQuery(ctx context.Context, query string) (<-chan []*string, error) {
	key := Key(query)

	pubsub := c.client.Subscribe(ctx, key)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", key, err)
	}

	members, err := c.client.SMembers(ctx, key).Result()
	if err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	sort.Strings(members)

	out := make(chan []*string, batchBuffer)
	go c.relay(ctx, pubsub, members, out)
	return out, nil
}

func (c *Contributor) relay(ctx context.Context, pubsub *redis.PubSub, members []string, out chan<- []*string) {
	defer close(out)
	defer pubsub.Close()

	send := func(batch []*string) bool {
		select {
		case out <- batch:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if len(members) > 0 {
		batch := make([]*string, len(members))
		for i := range members {
			batch[i] = &members[i]
		}
		if !send(batch) {
			return
		}
	}

	limiter := rate.NewLimiter(c.limit, 1)
	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var batch []*string
			if err := json.Unmarshal([]byte(msg.Payload), &batch); err != nil {
				logger.Warn("Redis feed %s: skipping malformed message: %v", msg.Channel, err)
				continue
			}
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			if !send(batch) {
				return
			}
		}
	}
}

// Close releases the client if the contributor created it.
func (c *Contributor) Close() error {
	if !c.owned {
		return nil
	}
	return c.client.Close()
}
