package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ogulcanaydogan/usagewatch/pkg/model"
)

// SlackNotifier sends alerts to a Slack webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *http.Client
}

// NewSlackNotifier creates a Slack webhook notifier.
func NewSlackNotifier(webhookURL, channel string, timeout time.Duration) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, msg Message) error {
	color := "#36a64f" // green
	switch msg.Category {
	case CategoryMedium:
		color = "#daa038" // amber
	case CategoryHigh:
		color = "#ff9900" // orange
	case CategoryCritical:
		color = "#ff0000" // red
	case CategoryReset:
		color = "#439fe0" // blue
	}

	title := "Usage window reset"
	if msg.Event.Kind == model.EventThresholdCrossed {
		title = fmt.Sprintf("Usage crossed %g%%", msg.Event.Threshold)
	}

	payload := slackPayload{
		Channel: s.channel,
		Attachments: []slackAttachment{
			{
				Color: color,
				Title: title,
				Text:  toSlackMarkup(msg.Text),
				Fields: []slackField{
					{Title: "5-hour", Value: fmt.Sprintf("%.1f%%", msg.Utilization), Short: true},
					{Title: "Level", Value: string(msg.Category), Short: true},
				},
				Footer: "usagewatch",
				Ts:     time.Now().Unix(),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

// toSlackMarkup converts the Telegram-flavoured markdown used by the
// renderer. Slack mrkdwn already shares *bold* and _italic_, so only the
// blank-line spacing is tightened.
func toSlackMarkup(text string) string {
	return strings.ReplaceAll(text, "\n\n", "\n")
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
