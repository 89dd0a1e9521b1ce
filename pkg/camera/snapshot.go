package camera

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/teslashibe/go-gazenav/internal/httpc"
)

// SnapshotSource polls an HTTP endpoint that returns one JPEG per request,
// such as an IP webcam or a host-side screen grabber.
type SnapshotSource struct {
	url    string
	client *http.Client
	limit  int64
}

// NewSnapshotSource creates a snapshot source for url.
func NewSnapshotSource(url string, cfg Config) (*SnapshotSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := httpc.Client
	if cfg.SnapshotTimeout > 0 {
		client = httpc.NewClient(cfg.SnapshotTimeout)
	}
	return &SnapshotSource{url: url, client: client, limit: cfg.MaxSnapshotBytes}, nil
}

// NextFrame fetches and decodes one snapshot. Transport failures are
// reported as ErrNoFrame so a flaky camera only costs the current cycle.
func (s *SnapshotSource) NextFrame(ctx context.Context) (Frame, error) {
	data, err := httpc.GetBytes(ctx, s.client, s.url, s.limit)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Frame{}, err
		}
		return Frame{}, fmt.Errorf("%w: %v", ErrNoFrame, err)
	}
	return Decode(data)
}

// Close implements Source.
func (s *SnapshotSource) Close() error {
	return nil
}
