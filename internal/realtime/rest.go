package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/donovanhide/eventsource"
	"github.com/go-resty/resty/v2"
)

// RESTStore talks to a Firebase-style realtime backend over its REST
// surface: PATCH merges a partial record, PUT replaces, DELETE removes,
// and GET with an If-Match round implements the atomic transaction.
// Subscriptions ride server-sent events.
type RESTStore struct {
	client *resty.Client
	base   string
	logger *slog.Logger
}

// RESTOption configures a RESTStore.
type RESTOption func(*RESTStore)

// WithRESTLogger sets the adapter's structured logger.
func WithRESTLogger(l *slog.Logger) RESTOption {
	return func(s *RESTStore) { s.logger = l }
}

// WithAuthToken attaches a bearer token to every request.
func WithAuthToken(token string) RESTOption {
	return func(s *RESTStore) { s.client.SetAuthToken(token) }
}

// NewREST creates a store client for the given backend base URL.
func NewREST(baseURL string, opts ...RESTOption) *RESTStore {
	s := &RESTStore{
		client: resty.New().SetTimeout(10 * time.Second),
		base:   strings.TrimRight(baseURL, "/"),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RESTStore) url(path string) string {
	return s.base + "/" + strings.Trim(path, "/") + ".json"
}

// Read implements Store.
func (s *RESTStore) Read(ctx context.Context, path string) ([]byte, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.url(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("read %s: backend returned %s", path, resp.Status())
	}
	body := resp.Body()
	// The backend encodes an absent subtree as JSON null.
	if len(body) == 0 || string(body) == "null" {
		return nil, nil
	}
	return body, nil
}

// Write implements Store via PATCH merge semantics.
func (s *RESTStore) Write(ctx context.Context, path string, partial map[string]any) error {
	resp, err := s.client.R().SetContext(ctx).SetBody(partial).Patch(s.url(path))
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("write %s: backend returned %s", path, resp.Status())
	}
	return nil
}

// Delete implements Store.
func (s *RESTStore) Delete(ctx context.Context, path string) error {
	resp, err := s.client.R().SetContext(ctx).Delete(s.url(path))
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return fmt.Errorf("delete %s: backend returned %s", path, resp.Status())
	}
	return nil
}

// AtomicUpdate implements Store with an ETag-guarded read-modify-write.
// A conflicting concurrent writer surfaces as 412 Precondition Failed and
// the transaction retries with fresh state under exponential backoff, so
// two clients incrementing the same record never lose an update.
func (s *RESTStore) AtomicUpdate(ctx context.Context, path string, fn func(current []byte) (any, error)) error {
	op := func() error {
		get, err := s.client.R().
			SetContext(ctx).
			SetHeader("X-Request-ETag", "true").
			Get(s.url(path))
		if err != nil {
			return err
		}
		if get.IsError() && get.StatusCode() != http.StatusNotFound {
			return backoff.Permanent(fmt.Errorf("backend returned %s", get.Status()))
		}

		current := get.Body()
		if get.StatusCode() == http.StatusNotFound || string(current) == "null" {
			current = nil
		}

		next, err := fn(current)
		if err != nil {
			return backoff.Permanent(err)
		}

		put, err := s.client.R().
			SetContext(ctx).
			SetHeader("If-Match", get.Header().Get("ETag")).
			SetBody(next).
			Put(s.url(path))
		if err != nil {
			return err
		}
		if put.StatusCode() == http.StatusPreconditionFailed {
			return fmt.Errorf("etag conflict on %s", path)
		}
		if put.IsError() {
			return backoff.Permanent(fmt.Errorf("backend returned %s", put.Status()))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return fmt.Errorf("atomic update %s: %w", path, err)
	}
	return nil
}

// OnDisconnectWrite implements Store. The backend holds the registration
// for this connection and applies it server-side on an unclean drop.
func (s *RESTStore) OnDisconnectWrite(ctx context.Context, path string, value any) error {
	body := map[string]any{"path": strings.Trim(path, "/"), "value": value}
	resp, err := s.client.R().SetContext(ctx).SetBody(body).Post(s.base + "/.ondisconnect")
	if err != nil {
		return fmt.Errorf("register disconnect write %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("register disconnect write %s: backend returned %s", path, resp.Status())
	}
	return nil
}

// Subscribe implements Store over server-sent events. The initial connect
// retries with exponential backoff; once established, eventsource handles
// reconnection itself. Payloads that are whole-subtree JSON are forwarded
// to onChange as-is.
func (s *RESTStore) Subscribe(ctx context.Context, path string, onChange func(data []byte)) (Cancel, error) {
	url := s.url(path) + "?sse=true"

	var stream *eventsource.Stream
	connect := func() error {
		var err error
		stream, err = eventsource.Subscribe(url, "")
		return err
	}
	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(connect, policy); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", path, err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case ev, ok := <-stream.Events:
				if !ok {
					return
				}
				data := []byte(ev.Data())
				if !json.Valid(data) {
					s.logger.Warn("dropping malformed event payload", "path", path)
					continue
				}
				onChange(data)
			case err, ok := <-stream.Errors:
				if !ok {
					return
				}
				s.logger.Warn("subscription stream error", "path", path, "error", err)
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			stream.Close()
		})
	}
	return cancel, nil
}
