package viewport

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/teslashibe/go-gazenav/internal/httpc"
	"github.com/teslashibe/go-gazenav/pkg/protocol"
	"github.com/teslashibe/go-gazenav/pkg/tracking"
)

// HTTPSink posts each intent as a protocol message to the host's
// /api/intent endpoint.
type HTTPSink struct {
	BaseURL string

	client *http.Client
}

// NewHTTPSink creates a host client for baseURL, e.g. "http://localhost:8000".
func NewHTTPSink(baseURL string) *HTTPSink {
	return &HTTPSink{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  httpc.Client,
	}
}

// Apply sends intent to the host. None intents are not sent.
func (h *HTTPSink) Apply(ctx context.Context, intent tracking.Intent) error {
	if intent.IsNone() {
		return nil
	}

	msg, err := protocol.NewIntentMessage(intentData(intent))
	if err != nil {
		return fmt.Errorf("failed to build intent message: %w", err)
	}
	data, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("failed to marshal intent message: %w", err)
	}

	if err := httpc.PostJSON(ctx, h.client, h.BaseURL+"/api/intent", data); err != nil {
		return fmt.Errorf("intent request failed: %w", err)
	}
	return nil
}
