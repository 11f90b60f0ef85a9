package feed

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"
)

const (
	minReconnectInterval = time.Second
	maxReconnectInterval = 30 * time.Second
)

// PostgresSubscriber subscribes to per-user NOTIFY channels on the
// remote database. The backend publishes one JSON payload per row
// change on the channel "task_changes_<userID>".
type PostgresSubscriber struct {
	dsn string
}

// NewPostgresSubscriber creates a subscriber for the given DSN.
func NewPostgresSubscriber(dsn string) *PostgresSubscriber {
	return &PostgresSubscriber{dsn: dsn}
}

// Subscribe opens a listener on the user's channel and returns the
// event stream plus a cancel function. Cancel is idempotent; after it
// returns no further events are delivered and the channel is closed.
func (s *PostgresSubscriber) Subscribe(userID string) (<-chan Event, func(), error) {
	listener := pq.NewListener(s.dsn, minReconnectInterval, maxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Printf("feed: listener event %d: %v", ev, err)
			}
		})

	channel := channelName(userID)
	if err := listener.Listen(channel); err != nil {
		listener.Close()
		return nil, nil, fmt.Errorf("listening on %s: %w", channel, err)
	}

	events := make(chan Event, 16)
	stop := make(chan struct{})
	var once sync.Once

	cancel := func() {
		once.Do(func() {
			close(stop)
			if err := listener.Close(); err != nil {
				log.Printf("feed: closing listener: %v", err)
			}
		})
	}

	go func() {
		defer close(events)
		for {
			select {
			case <-stop:
				return
			case n, ok := <-listener.Notify:
				if !ok {
					return
				}
				// Nil notifications signal a reconnect; pending events
				// will be re-delivered by the backend.
				if n == nil {
					continue
				}
				ev, err := decodeEvent(n.Extra)
				if err != nil {
					log.Printf("feed: dropping event: %v", err)
					continue
				}
				select {
				case events <- ev:
				case <-stop:
					return
				}
			}
		}
	}()

	return events, cancel, nil
}

// channelName returns the NOTIFY channel for a user. Dashes in UUIDs
// are not valid in channel identifiers, so the backend strips them the
// same way.
func channelName(userID string) string {
	cleaned := make([]byte, 0, len(userID))
	for i := 0; i < len(userID); i++ {
		c := userID[i]
		if c == '-' {
			continue
		}
		cleaned = append(cleaned, c)
	}
	return "task_changes_" + string(cleaned)
}
