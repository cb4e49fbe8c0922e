package remote

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	streamPath              = "/api/v1/sections/stream"
	eventSectionChange      = "section-change"
	maxStreamLineBytes      = 64 * 1024
	streamScannerInitialLen = 4096
)

// ChangeEvent is one section change announced on the stream.
type ChangeEvent struct {
	Operation  string   `json:"operation"`
	SectionIDs []string `json:"sectionIds"`
	Timestamp  int64    `json:"timestamp"`
}

// StreamChanges follows the server's section change stream and calls handle for
// every change event until ctx is done or the server closes the stream. Heartbeats
// are skipped.
func (c *Client) StreamChanges(ctx context.Context, handle func(ChangeEvent)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+streamPath, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	streamClient := *c.httpClient
	streamClient.Timeout = 0
	resp, err := streamClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeStatusError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, streamScannerInitialLen), maxStreamLineBytes)

	var event string
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event == eventSectionChange && data.Len() > 0 {
				var change ChangeEvent
				if err := json.Unmarshal([]byte(data.String()), &change); err != nil {
					return fmt.Errorf("decoding change event: %w", err)
				}
				handle(change)
			}
			event = ""
			data.Reset()
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("reading change stream: %w", err)
	}
	return ctx.Err()
}
