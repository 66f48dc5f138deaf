package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/httpclient"
)

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(ctx context.Context, msg *Message) error {
	s.logger.InfoContext(ctx, "email",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("text", msg.Text),
	)
	return nil
}

// HTTPSender POSTs messages as JSON to an email API.
type HTTPSender struct {
	client *httpclient.CircuitBreakerClient
	url    string
}

func NewHTTPSender(client *httpclient.CircuitBreakerClient, url string) *HTTPSender {
	return &HTTPSender{client: client, url: url}
}

func (s *HTTPSender) Name() string { return "http" }

func (s *HTTPSender) Send(ctx context.Context, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	resp, err := s.client.Post(ctx, s.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post email: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return httpclient.ParseResponseError(resp, "email api")
	}
	_ = resp.Body.Close()
	return nil
}
