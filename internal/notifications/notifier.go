// Package notifications publishes document workflow events into Redis
// channels consumed by the frontend's notification stream.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"

	"github.com/redis/go-redis/v9"

	"paperflow/internal/models"
)

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// DocumentEvent is the payload published when a document changes hands.
type DocumentEvent struct {
	Event           string `json:"event"`
	DocumentID      uint   `json:"document_id"`
	FileName        string `json:"file_name"`
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(
	ctx context.Context, userID uint, payload string,
) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishDocumentEvent notifies a user about a workflow transition on a
// document: a forward landing on their desk, or an approval or rejection of
// their own submission.
func (n *Notifier) PublishDocumentEvent(
	ctx context.Context, userID uint, event string, doc *models.Document,
) error {
	if n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(DocumentEvent{
		Event:           event,
		DocumentID:      doc.ID,
		FileName:        doc.FileName,
		Status:          string(doc.Status),
		RejectionReason: doc.RejectionReason,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return n.PublishUser(ctx, userID, string(payload))
}

// PublishBroadcast sends a notification payload to all connected users.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, "notifications:broadcast", payload).Err()
}

// StartPatternSubscriber subscribes to pattern `notifications:user:*` and calls onMessage
// for each incoming message. onMessage receives channel and payload.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "notifications:user:*", "notifications:broadcast")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in PatternSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}
