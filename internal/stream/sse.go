package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Subscriber is the transport-agnostic port for the availability stream.
// Subscribe returns a stop function that tears the subscription down; after
// stop returns no handler will be invoked again.
type Subscriber interface {
	Subscribe(ctx context.Context, scheduleID uint64, h Handlers) (stop func(), err error)
}

// SSESubscriber consumes GET /v1/schedules/{id}/seats/stream as
// text/event-stream.  Dial failures before a stream is established are
// transient: the subscriber retries with exponential backoff and stays
// silent.  Once a stream has been established, losing it is terminal: the
// OnClose handler fires exactly once and no reconnection is attempted.
type SSESubscriber struct {
	BaseURL string       // e.g. "http://localhost:8080"
	Token   string       // optional bearer token
	Client  *http.Client // nil means http.DefaultClient
}

// Subscribe starts the read loop in a background goroutine.  The returned
// stop function cancels the stream and waits for the loop to exit, so
// callers can rely on no handler running after stop returns.
func (s *SSESubscriber) Subscribe(ctx context.Context, scheduleID uint64, h Handlers) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		s.run(ctx, scheduleID, h)
	}()

	return func() {
		cancel()
		<-done
	}, nil
}

func (s *SSESubscriber) run(ctx context.Context, scheduleID uint64, h Handlers) {
	backoff := time.Second
	for {
		body, err := s.dial(ctx, scheduleID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Still connecting: transient, retry quietly.
			log.Printf("stream: dial schedule %d failed: %v; retrying in %s", scheduleID, err, backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}

		err = s.readLoop(ctx, body, h)
		_ = body.Close()
		if ctx.Err() != nil {
			// Cancelled by unmount: not an error, no notice.
			return
		}
		// The stream was established and then lost: terminal.
		if h.OnClose != nil {
			h.OnClose(err)
		}
		return
	}
}

// dial opens the stream and returns its body once the server has accepted
// the subscription.
func (s *SSESubscriber) dial(ctx context.Context, scheduleID uint64) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/v1/schedules/%d/seats/stream", strings.TrimRight(s.BaseURL, "/"), scheduleID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("stream endpoint returned %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// readLoop parses text/event-stream frames until the stream ends.  Comment
// lines (":keepalive") are skipped; unknown event names are ignored.
func (s *SSESubscriber) readLoop(ctx context.Context, body io.Reader, h Handlers) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var event string
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			// Blank line terminates a frame.
			if data.Len() > 0 {
				dispatch(event, data.String(), h)
			}
			event = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// Keepalive comment.
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
		// Field names other than event/data (id, retry) carry nothing we
		// consume; the protocol has no client-side replay.
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return errors.New("stream closed by server")
}

func dispatch(event, data string, h Handlers) {
	switch event {
	case EventSnapshot:
		var snap Snapshot
		if err := json.Unmarshal([]byte(data), &snap); err != nil {
			log.Printf("stream: bad snapshot payload: %v", err)
			return
		}
		if h.OnSnapshot != nil {
			h.OnSnapshot(snap)
		}
	case EventSeatUpdate:
		var up Update
		if err := json.Unmarshal([]byte(data), &up); err != nil {
			log.Printf("stream: bad seat-update payload: %v", err)
			return
		}
		if h.OnUpdate != nil {
			h.OnUpdate(up)
		}
	}
}
