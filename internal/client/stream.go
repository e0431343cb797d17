package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// StreamEvents opens the server-sent event stream and delivers events until
// ctx is cancelled or the server closes the connection; the channel is then
// closed. Reconnection is left to the caller, which can resume with the ID of
// the last event it saw.
func (c *HTTPClient) StreamEvents(ctx context.Context, req *StreamRequest) (<-chan Event, error) {
	path := "/api/events/stream"
	if req != nil && len(req.Topics) > 0 {
		path += "?" + url.Values{"topics": {strings.Join(req.Topics, ",")}}.Encode()
	}
	httpReq, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	if req != nil && req.LastEventID != "" {
		httpReq.Header.Set("Last-Event-ID", req.LastEventID)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, apiError(resp.StatusCode, body)
	}

	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		defer resp.Body.Close()
		readSSE(ctx, resp.Body, ch)
	}()
	return ch, nil
}

// readSSE parses "id:", "event:" and "data:" lines into events. Comment lines
// (keepalives) and retry hints are ignored; multi-line data is joined with "\n".
func readSSE(ctx context.Context, r io.Reader, ch chan<- Event) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		cur  Event
		data []string
	)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if cur.Topic != "" || len(data) > 0 {
				cur.Data = []byte(strings.Join(data, "\n"))
				select {
				case ch <- cur:
				case <-ctx.Done():
					return
				}
			}
			cur, data = Event{}, nil
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "id":
			cur.ID = value
		case "event":
			cur.Topic = value
		case "data":
			data = append(data, value)
		}
	}
}
