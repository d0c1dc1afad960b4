package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"badgepass/internal/badge/ports"
	id "badgepass/pkg/domain"
	"badgepass/pkg/platform/circuit"
	"badgepass/pkg/platform/sentinel"
)

const maxResponseBytes = 64 << 10

// participantResponse is the registration service's wire format.
type participantResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Confirmed bool   `json:"confirmed"`
}

// HTTPDirectory reads participants from the registration service over HTTP.
// A circuit breaker fails calls fast while the service is down.
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
}

type HTTPOption func(*HTTPDirectory)

func WithHTTPClient(client *http.Client) HTTPOption {
	return func(d *HTTPDirectory) {
		d.client = client
	}
}

func WithBreaker(b *circuit.Breaker) HTTPOption {
	return func(d *HTTPDirectory) {
		d.breaker = b
	}
}

func WithLogger(logger *slog.Logger) HTTPOption {
	return func(d *HTTPDirectory) {
		d.logger = logger
	}
}

func NewHTTPDirectory(baseURL string, opts ...HTTPOption) (*HTTPDirectory, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid directory base URL %q", baseURL)
	}
	d := &HTTPDirectory{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
		breaker: circuit.New("participant-directory", circuit.WithCooldown(10*time.Second)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *HTTPDirectory) FindParticipant(ctx context.Context, participantID id.ParticipantID) (*ports.Participant, error) {
	if !d.breaker.Allow() {
		return nil, fmt.Errorf("%w: directory circuit open", sentinel.ErrUnavailable)
	}

	p, err := d.fetch(ctx, participantID)
	switch {
	case err == nil, errors.Is(err, sentinel.ErrNotFound):
		if _, change := d.breaker.RecordSuccess(); change.Closed {
			d.log(ctx, "directory circuit closed")
		}
	case errors.Is(ctx.Err(), context.Canceled):
		// The caller gave up; the directory's health is unknown.
	default:
		if _, change := d.breaker.RecordFailure(); change.Opened {
			d.log(ctx, "directory circuit opened", "error", err)
		}
	}
	return p, err
}

func (d *HTTPDirectory) fetch(ctx context.Context, participantID id.ParticipantID) (*ports.Participant, error) {
	endpoint := d.baseURL + "/participants/" + url.PathEscape(participantID.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, sentinel.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: directory returned %d", sentinel.ErrUnavailable, resp.StatusCode)
	}

	var body participantResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode directory response: %v", sentinel.ErrUnavailable, err)
	}
	if body.ID != "" && body.ID != participantID.String() {
		return nil, fmt.Errorf("%w: directory returned participant %q for %q", sentinel.ErrUnavailable, body.ID, participantID)
	}
	return &ports.Participant{
		ID:        participantID,
		Name:      body.Name,
		Category:  body.Category,
		Confirmed: body.Confirmed,
	}, nil
}

func (d *HTTPDirectory) log(ctx context.Context, msg string, args ...any) {
	if d.logger == nil {
		return
	}
	d.logger.WarnContext(ctx, msg, append(args, "breaker", d.breaker.Name())...)
}
