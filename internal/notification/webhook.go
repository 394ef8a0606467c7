package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"text/template"
	"time"

	"github.com/reliefops/reliefhub/internal/httpclient"
)

// WebhookConfig holds generic webhook configuration
type WebhookConfig struct {
	URL         string
	Method      string            // HTTP method (POST, PUT, etc.)
	Body        string            // Template for request body
	Headers     map[string]string // Custom headers
	ContentType string            // Content-Type header
}

// WebhookProvider sends notifications via generic HTTP webhooks
type WebhookProvider struct {
	config WebhookConfig
	tmpl   *template.Template
	client *http.Client
}

// NewWebhookProvider creates a new generic webhook notification provider.
// The body template is parsed once here.
func NewWebhookProvider(config WebhookConfig) (*WebhookProvider, error) {
	// Set defaults
	if config.Method == "" {
		config.Method = http.MethodPost
	}
	if config.ContentType == "" {
		config.ContentType = "application/json"
	}
	if config.Body == "" {
		config.Body = DefaultWebhookBody
	}

	tmpl, err := template.New("webhook").Funcs(template.FuncMap{"json": jsonString}).Parse(config.Body)
	if err != nil {
		return nil, fmt.Errorf("invalid body template: %w", err)
	}

	return &WebhookProvider{
		config: config,
		tmpl:   tmpl,
		client: httpclient.NewTraceClient("webhook", 30*time.Second),
	}, nil
}

// Name returns the provider name
func (w *WebhookProvider) Name() string {
	return "webhook"
}

// webhookTemplateData holds the data available for template rendering
type webhookTemplateData struct {
	Type       string
	Title      string
	Message    string
	Timestamp  string
	Fields     map[string]string
	FieldsJSON string
}

// Send sends a notification via the webhook
func (w *WebhookProvider) Send(ctx context.Context, event Event) error {
	body, err := w.renderBody(event)
	if err != nil {
		return fmt.Errorf("failed to render body template: %w", err)
	}

	return w.sendRequest(ctx, body)
}

// Test sends a test notification
func (w *WebhookProvider) Test(ctx context.Context) error {
	return w.Send(ctx, testEvent("webhook"))
}

// renderBody renders the body template with event data
func (w *WebhookProvider) renderBody(event Event) (string, error) {
	fieldsJSON := []byte("{}")
	if event.Fields != nil {
		fieldsJSON, _ = json.Marshal(event.Fields)
	}

	data := webhookTemplateData{
		Type:       string(event.Type),
		Title:      event.Title,
		Message:    event.Message,
		Timestamp:  event.Timestamp.Format(time.RFC3339),
		Fields:     event.Fields,
		FieldsJSON: string(fieldsJSON),
	}

	var buf bytes.Buffer
	if err := w.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// sendRequest sends the HTTP request to the webhook URL
func (w *WebhookProvider) sendRequest(ctx context.Context, body string) error {
	req, err := http.NewRequestWithContext(ctx, w.config.Method, w.config.URL, bytes.NewReader([]byte(body)))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Set Content-Type header
	req.Header.Set("Content-Type", w.config.ContentType)

	// Set custom headers
	for key, value := range w.config.Headers {
		req.Header.Set(key, value)
	}

	return send(w.client, req)
}

// jsonString quotes s as a JSON string literal
func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// DefaultWebhookBody is the body template used when none is configured
const DefaultWebhookBody = `{
  "event": {{json .Type}},
  "title": {{json .Title}},
  "message": {{json .Message}},
  "timestamp": {{json .Timestamp}},
  "fields": {{.FieldsJSON}}
}`
