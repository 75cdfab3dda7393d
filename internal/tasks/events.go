package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventChannel is the Redis channel task status changes are published on.
const EventChannel = "EVENT_SEARCH_TASK"

// Event is the payload published for every task transition.
type Event struct {
	Type       string    `json:"type"`
	TaskID     string    `json:"taskId"`
	Keyword    string    `json:"keyword"`
	Location   string    `json:"location"`
	Status     Status    `json:"status"`
	TotalFound int       `json:"totalFound"`
	TotalSaved int       `json:"totalSaved"`
	At         time.Time `json:"at"`
}

func eventFor(t *Task) Event {
	return Event{
		Type:       EventChannel,
		TaskID:     t.ID,
		Keyword:    t.Keyword,
		Location:   t.Location,
		Status:     t.Status,
		TotalFound: t.TotalFound,
		TotalSaved: t.TotalSaved,
		At:         t.UpdatedAt.UTC(),
	}
}

// RedisPublisher publishes task events with PUBLISH.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

// NewRedisPublisher returns a publisher on EventChannel.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: EventChannel}
}

// Publish sends ev to subscribers.
func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", p.channel, err)
	}
	return nil
}
