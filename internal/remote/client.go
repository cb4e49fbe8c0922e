package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/misicnenad/fith-on/internal/sections"
)

const (
	sectionsPath    = "/api/v1/sections"
	logsPath        = "/api/v1/logs"
	healthPath      = "/healthz"
	defaultTimeout  = 30 * time.Second
	maxErrorBodyLen = 4096
)

var errMissingBaseURL = errors.New("remote: base url required")

// StatusError reports a non-2xx response from the persistence service.
type StatusError struct {
	StatusCode int
	Code       string
}

func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("remote: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote: status %d: %s", e.StatusCode, e.Code)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// Client talks to the fith-on API on behalf of one signed-in user.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates an API client. The bearer token identifies the user to the server.
func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errMissingBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("remote: invalid base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		httpClient: httpClient,
	}, nil
}

type sectionsEnvelope struct {
	Sections []sections.Section `json:"sections"`
}

type logRequest struct {
	Operation string `json:"operation"`
	Message   string `json:"message"`
}

// Ping checks that the service answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, healthPath, nil, nil)
}

// GetSections fetches every section owned by the token's user.
func (c *Client) GetSections(ctx context.Context, _ string) ([]sections.Section, error) {
	var envelope sectionsEnvelope
	if err := c.do(ctx, http.MethodGet, sectionsPath, nil, &envelope); err != nil {
		return nil, fmt.Errorf("fetching sections: %w", err)
	}
	return envelope.Sections, nil
}

// AddSection creates a section with its client assigned id.
func (c *Client) AddSection(ctx context.Context, _ string, section sections.Section) error {
	if err := c.do(ctx, http.MethodPost, sectionsPath, section, nil); err != nil {
		return fmt.Errorf("adding section %s: %w", section.ID, err)
	}
	return nil
}

// RemoveSection deletes a section by id.
func (c *Client) RemoveSection(ctx context.Context, _ string, sectionID sections.SectionID) error {
	if err := c.do(ctx, http.MethodDelete, sectionPath(sectionID), nil, nil); err != nil {
		return fmt.Errorf("removing section %s: %w", sectionID, err)
	}
	return nil
}

// UpdateSection replaces a section by id.
func (c *Client) UpdateSection(ctx context.Context, _ string, section sections.Section) error {
	if err := c.do(ctx, http.MethodPut, sectionPath(section.ID), section, nil); err != nil {
		return fmt.Errorf("updating section %s: %w", section.ID, err)
	}
	return nil
}

// PostLog records a failed client operation on the server.
func (c *Client) PostLog(ctx context.Context, operation, message string) error {
	return c.do(ctx, http.MethodPost, logsPath, logRequest{Operation: operation, Message: message}, nil)
}

func sectionPath(id sections.SectionID) string {
	return sectionsPath + "/" + url.PathEscape(id.String())
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeStatusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func decodeStatusError(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil {
		statusErr.Code = payload.Error
	}
	return statusErr
}
