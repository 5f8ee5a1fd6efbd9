package notify

import (
	"context"
	"net/http"

	"github.com/screwyprof/stakecheck/checker"
)

type slackPayload struct {
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text"`
}

// SlackNotifier posts the rendered snapshot to a Slack incoming webhook
type SlackNotifier struct {
	client  *http.Client
	webhook string
	channel string
}

// NewSlackNotifier creates a notifier for the webhook. An empty channel uses the webhook default.
func NewSlackNotifier(client *http.Client, webhook, channel string) *SlackNotifier {
	return &SlackNotifier{client: client, webhook: webhook, channel: channel}
}

// Send posts one message holding every rendered line; empty snapshots are not posted
func (s *SlackNotifier) Send(ctx context.Context, snapshot checker.Snapshot) error {
	text := Render(snapshot)
	if text == "" {
		return nil
	}
	return postJSON(ctx, s.client, s.webhook, slackPayload{Channel: s.channel, Text: text})
}
