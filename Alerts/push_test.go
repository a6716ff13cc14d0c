package Alerts

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeMessenger struct {
	sent []*messaging.Message
}

func (f *fakeMessenger) Send(_ context.Context, m *messaging.Message) (string, error) {
	if m.Token == "stale" {
		return "", errors.New("registration-token-not-registered")
	}
	f.sent = append(f.sent, m)
	return "projects/x/messages/1", nil
}

func TestRemind(t *testing.T) {
	fake := &fakeMessenger{}
	p := &Pusher{client: fake, log: zap.NewNop()}

	sent := p.Remind(context.Background(), map[uint][]string{
		1: {"phone", "stale"},
		2: {"tablet"},
	}, Reminder{Title: "Plan your day", Body: "No plan yet for today", Kind: "morning", Date: "2024-05-01"})

	assert.Equal(t, 2, sent)
	assert.Len(t, fake.sent, 2)
	for _, m := range fake.sent {
		assert.Equal(t, "morning", m.Data["kind"])
		assert.Equal(t, "2024-05-01", m.Data["date"])
		assert.Equal(t, "Plan your day", m.Notification.Title)
	}
}
