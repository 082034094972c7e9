package communication

import (
	"context"
	"fmt"
	"os"

	"github.com/slack-go/slack"
)

// Notifier receives operational notices (backup failures, restores).
type Notifier interface {
	Info(ctx context.Context, message string) error
	Error(ctx context.Context, message string) error
}

type nopNotifier struct{}

func (nopNotifier) Info(context.Context, string) error  { return nil }
func (nopNotifier) Error(context.Context, string) error { return nil }

var NopNotifier Notifier = nopNotifier{}

type Slack struct {
	client  *slack.Client
	options SlackOption
}

type SlackOption struct {
	InfoChannelID  string
	ErrorChannelID string
}

// ConnectSlack builds a notifier from SLACK_* variables. It returns nil when
// no bot token is set.
func ConnectSlack() *Slack {
	token := os.Getenv("SLACK_BOT_TOKEN")
	if token == "" {
		return nil
	}
	infoCh := os.Getenv("SLACK_INFO_CHANNEL")
	errorCh := os.Getenv("SLACK_ERROR_CHANNEL")

	return NewSlack(token, SlackOption{InfoChannelID: infoCh, ErrorChannelID: errorCh})
}

func NewSlack(token string, options SlackOption, opts ...slack.Option) *Slack {
	client := slack.New(token, opts...)
	return &Slack{client: client, options: options}
}

func (s *Slack) postMessage(ctx context.Context, channelID, message string) error {
	if channelID == "" {
		return nil
	}
	_, _, err := s.client.PostMessageContext(
		ctx,
		channelID,
		slack.MsgOptionText(message, false),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		return fmt.Errorf("failed to post message to Slack: %w", err)
	}
	return nil
}

func (s *Slack) Info(ctx context.Context, message string) error {
	return s.postMessage(ctx, s.options.InfoChannelID, message)
}

func (s *Slack) Error(ctx context.Context, message string) error {
	return s.postMessage(ctx, s.options.ErrorChannelID, message)
}
