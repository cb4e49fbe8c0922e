package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/misicnenad/fith-on/internal/program"
	"github.com/misicnenad/fith-on/internal/sections"
)

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(ClientConfig{BaseURL: "  "}); !errors.Is(err, errMissingBaseURL) {
		t.Fatalf("expected errMissingBaseURL, got %v", err)
	}
}

func TestClientSendsBearerTokenAndDecodesSections(t *testing.T) {
	block := program.GenerateBlock(program.FormValues{"benchMax": 90}, 2)
	stored := sections.NewBlockSection(block)
	stored.ID = "b-2"
	stored.DateCreated = 42

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodGet || r.URL.Path != "/api/v1/sections" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"sections": []sections.Section{stored}})
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL + "/", Token: "token-1"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	items, err := client.GetSections(context.Background(), "ignored")
	if err != nil {
		t.Fatalf("get sections: %v", err)
	}
	if len(items) != 1 || items[0].ID != "b-2" || items[0].Block == nil || items[0].Block.Number != 2 {
		t.Fatalf("unexpected sections %#v", items)
	}
}

func TestClientMutationsUseExpectedRoutes(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.EscapedPath())
		mu.Unlock()
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			body, _ := io.ReadAll(r.Body)
			var decoded sections.Section
			if err := json.Unmarshal(body, &decoded); err != nil {
				t.Errorf("invalid section body: %v", err)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	note := sections.NewNoteSection("Form", "")
	note.ID = "note 1"
	note.DateCreated = 1
	ctx := context.Background()

	if err := client.AddSection(ctx, "u", note); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := client.UpdateSection(ctx, "u", note); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := client.RemoveSection(ctx, "u", note.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	expected := []string{
		"POST /api/v1/sections",
		"PUT /api/v1/sections/note%201",
		"DELETE /api/v1/sections/note%201",
	}
	if len(seen) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, seen)
	}
	for index := range expected {
		if seen[index] != expected[index] {
			t.Fatalf("request %d: expected %s, got %s", index, expected[index], seen[index])
		}
	}
}

func TestClientSurfacesStatusErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"sections.add.duplicate"}`))
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	note := sections.NewNoteSection("Form", "")
	note.ID = "n"
	note.DateCreated = 1
	err = client.AddSection(context.Background(), "u", note)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusConflict || statusErr.Code != "sections.add.duplicate" {
		t.Fatalf("unexpected status error %#v", statusErr)
	}
}

func TestPingReportsUnreachableService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("expected healthy ping, got %v", err)
	}
	server.Close()
	if err := client.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping failure after shutdown")
	}
}

func TestFailureLogForwardsEntries(t *testing.T) {
	received := make(chan logRequest, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/logs" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload logRequest
		_ = json.NewDecoder(r.Body).Decode(&payload)
		received <- payload
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	failureLog := NewFailureLog(client, nil)
	failureLog.Log("u", "add", errors.New("timeout"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := failureLog.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case payload := <-received:
		if payload.Operation != "add" || payload.Message != "timeout" {
			t.Fatalf("unexpected payload %#v", payload)
		}
	default:
		t.Fatalf("expected forwarded failure entry")
	}

	failureLog.Log("u", "add", errors.New("after close"))
}
