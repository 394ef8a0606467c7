package notification

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/reliefops/reliefhub/internal/httpclient"
)

// DiscordConfig holds Discord webhook configuration
type DiscordConfig struct {
	WebhookURL string
	Username   string // Bot username (optional)
	AvatarURL  string // Bot avatar URL (optional)
}

// DiscordProvider sends notifications via Discord webhooks
type DiscordProvider struct {
	config DiscordConfig
	client *http.Client
}

// NewDiscordProvider creates a new Discord notification provider
func NewDiscordProvider(config DiscordConfig) *DiscordProvider {
	if config.Username == "" {
		config.Username = "Reliefhub"
	}
	return &DiscordProvider{
		config: config,
		client: httpclient.NewTraceClient("discord", 30*time.Second),
	}
}

// Name returns the provider name
func (d *DiscordProvider) Name() string {
	return "discord"
}

// Send sends a notification to Discord
func (d *DiscordProvider) Send(ctx context.Context, event Event) error {
	payload := discordWebhookPayload{
		Username:  d.config.Username,
		AvatarURL: d.config.AvatarURL,
		Embeds:    []discordEmbed{d.buildEmbed(event)},
	}
	return postJSON(ctx, d.client, d.config.WebhookURL, payload)
}

// Test sends a test notification
func (d *DiscordProvider) Test(ctx context.Context) error {
	return d.Send(ctx, testEvent("Discord"))
}

// buildEmbed creates a Discord embed from an event
func (d *DiscordProvider) buildEmbed(event Event) discordEmbed {
	embed := discordEmbed{
		Title:       event.Title,
		Description: event.Message,
		Color:       colorForEvent(event),
		Timestamp:   event.Timestamp.Format(time.RFC3339),
		Footer: &discordEmbedFooter{
			Text: "Reliefhub",
		},
	}

	// Sorted so repeated alerts render identically
	names := make([]string, 0, len(event.Fields))
	for name := range event.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:   name,
			Value:  event.Fields[name],
			Inline: true,
		})
	}

	return embed
}

// colorForEvent returns a color based on event type and severity
func colorForEvent(event Event) int {
	switch event.Type {
	case EventDisasterDeclared:
		if sev := event.Fields["severity"]; sev == "critical" || sev == "high" {
			return 0xFF0000 // Red
		}
		return 0xFF9900 // Orange
	case EventDonationCompleted, EventDonationReceived:
		return 0x00FF00 // Green
	case EventCampStatusChanged, EventDisasterStatusChanged:
		return 0xFFFF00 // Yellow
	case EventCampOpened:
		return 0x0099FF // Blue
	default:
		return 0x808080 // Gray
	}
}

// Discord webhook payload structures
type discordWebhookPayload struct {
	Username  string         `json:"username,omitempty"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Content   string         `json:"content,omitempty"`
	Embeds    []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
}

type discordEmbedFooter struct {
	Text    string `json:"text,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}
