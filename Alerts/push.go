// Package Alerts sends plan reminders to users' devices through Firebase
// Cloud Messaging.
package Alerts

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

type messenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Pusher delivers reminders to device tokens.
type Pusher struct {
	client messenger
	log    *zap.Logger
}

// InitFirebase builds a Pusher from a service account key file.
func InitFirebase(ctx context.Context, credentialsFile string, log *zap.Logger) (*Pusher, error) {
	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Messaging client: %w", err)
	}
	log.Info("firebase initialized")
	return &Pusher{client: client, log: log}, nil
}

// Reminder is one push notification.
type Reminder struct {
	Title string
	Body  string
	Kind  string
	Date  string
}

func (r Reminder) message(token string) *messaging.Message {
	return &messaging.Message{
		Token: token,
		Data: map[string]string{
			"kind": r.Kind,
			"date": r.Date,
		},
		Notification: &messaging.Notification{
			Title: r.Title,
			Body:  r.Body,
		},
		Android: &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
			Priority: "high",
		},
	}
}

// Remind sends r to every token of every user in tokens and returns how many
// were delivered. A failed token is logged and skipped.
func (p *Pusher) Remind(ctx context.Context, tokens map[uint][]string, r Reminder) int {
	sent := 0
	for userID, list := range tokens {
		for _, token := range list {
			id, err := p.client.Send(ctx, r.message(token))
			if err != nil {
				p.log.Warn("push failed", zap.Uint("user_id", userID), zap.String("kind", r.Kind), zap.Error(err))
				continue
			}
			p.log.Debug("push sent", zap.Uint("user_id", userID), zap.String("message_id", id))
			sent++
		}
	}
	return sent
}
