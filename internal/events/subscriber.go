package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"pongarena/server/internal/logging"
)

// SubjectUserUpdated carries profile edits made in the external account
// service; live player records pick the new display info up mid-session.
const SubjectUserUpdated = "user.updated"

// UserUpdatedEvent is the payload on SubjectUserUpdated.
type UserUpdatedEvent struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// SubscribeUserUpdates feeds decoded profile edits to apply. Messages that do
// not decode, or that carry no user id, are dropped with a warning.
func (p *Publisher) SubscribeUserUpdates(apply func(userID int64, username, avatar string)) (*nats.Subscription, error) {
	if p == nil || p.conn == nil {
		return nil, fmt.Errorf("not connected")
	}
	if apply == nil {
		return nil, fmt.Errorf("apply callback must be provided")
	}
	return p.conn.Subscribe(SubjectUserUpdated, func(msg *nats.Msg) {
		event, err := decodeUserUpdate(msg.Data)
		if err != nil {
			p.logger.Warn("user update dropped",
				logging.String("subject", msg.Subject),
				logging.Error(err),
			)
			return
		}
		apply(event.UserID, event.Username, event.Avatar)
	})
}

func decodeUserUpdate(data []byte) (UserUpdatedEvent, error) {
	var event UserUpdatedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return UserUpdatedEvent{}, fmt.Errorf("decode %s: %w", SubjectUserUpdated, err)
	}
	if event.UserID <= 0 {
		return UserUpdatedEvent{}, fmt.Errorf("%s without user_id", SubjectUserUpdated)
	}
	return event, nil
}
