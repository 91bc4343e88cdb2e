package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/properties"
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []DiscordField `json:"fields,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
}

type DiscordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

const (
	colorRed   = 16711680
	colorGreen = 65280
)

// Discord posts embeds to webhooks. An empty webhook URL disables that kind
// of notification.
type Discord struct {
	ErrorURL   string
	SuccessURL string
	Client     *http.Client
}

func NewDiscord() *Discord {
	return &Discord{
		ErrorURL:   properties.DiscordErrorNotificationUrl(),
		SuccessURL: properties.DiscordSuccessNotificationUrl(),
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *Discord) Error(errorMessage string) error {
	return d.send(d.ErrorURL, DiscordEmbed{
		Title:       "🚨 Error Notification",
		Description: fmt.Sprintf("An error occurred: %s", errorMessage),
		Color:       colorRed,
	})
}

func (d *Discord) Success(title, description string, fields ...DiscordField) error {
	return d.send(d.SuccessURL, DiscordEmbed{
		Title:       "✅ " + title,
		Description: description,
		Color:       colorGreen,
		Fields:      fields,
	})
}

func (d *Discord) send(url string, embed DiscordEmbed) error {
	if url == "" {
		return nil
	}
	embed.Timestamp = time.Now().UTC().Format(time.RFC3339)
	payload, err := json.Marshal(DiscordMessage{Embeds: []DiscordEmbed{embed}})
	if err != nil {
		return err
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send Discord notification, status code: %d", resp.StatusCode)
	}
	return nil
}

func SendDiscordErrorNotification(errorMessage string) error {
	return NewDiscord().Error(errorMessage)
}
