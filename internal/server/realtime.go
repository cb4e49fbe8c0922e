package server

import (
	"context"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	RealtimeEventSectionChanged = "section-change"
	realtimeEventHeartbeat      = "heartbeat"

	sectionOperationAdd    = "add"
	sectionOperationUpdate = "update"
	sectionOperationRemove = "remove"

	realtimeBufferSize = 16
)

// RealtimeMessage announces that a user's sections changed on the server.
type RealtimeMessage struct {
	UserKey    string
	EventType  string
	Operation  string
	SectionIDs []string
	Timestamp  time.Time
}

type realtimeEventPayload struct {
	Operation  string   `json:"operation"`
	SectionIDs []string `json:"sectionIds"`
	Timestamp  int64    `json:"timestamp"`
}

// RealtimeDispatcher fans section change messages out to the streams of one user.
// A subscriber that falls behind loses messages rather than blocking publishers.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]chan RealtimeMessage
	nextID      int64
	bufferSize  int
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[string]map[int64]chan RealtimeMessage),
		bufferSize:  realtimeBufferSize,
	}
}

// Subscribe registers a stream for userKey that lives until ctx ends or cleanup runs.
func (d *RealtimeDispatcher) Subscribe(ctx context.Context, userKey string) (<-chan RealtimeMessage, func()) {
	if userKey == "" {
		stream := make(chan RealtimeMessage)
		close(stream)
		return stream, func() {}
	}

	stream := make(chan RealtimeMessage, d.bufferSize)
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	if _, ok := d.subscribers[userKey]; !ok {
		d.subscribers[userKey] = make(map[int64]chan RealtimeMessage)
	}
	d.subscribers[userKey][id] = stream
	d.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() { d.unregister(userKey, id) })
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return stream, cleanup
}

// Publish delivers message to every stream of message.UserKey without blocking.
func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if message.UserKey == "" || message.EventType == "" {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, stream := range d.subscribers[message.UserKey] {
		select {
		case stream <- message:
		default:
		}
	}
}

func (d *RealtimeDispatcher) subscriberCount(userKey string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers[userKey])
}

func (d *RealtimeDispatcher) unregister(userKey string, id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	streams := d.subscribers[userKey]
	if streams == nil {
		return
	}
	delete(streams, id)
	if len(streams) == 0 {
		delete(d.subscribers, userKey)
	}
}

func (h *httpHandler) publishChange(userKey, operation string, sectionIDs ...string) {
	ids := uniqueSectionIDs(sectionIDs)
	if len(ids) == 0 {
		return
	}
	h.metrics.observeSectionChange(operation)
	h.realtime.Publish(RealtimeMessage{
		UserKey:    userKey,
		EventType:  RealtimeEventSectionChanged,
		Operation:  operation,
		SectionIDs: ids,
		Timestamp:  time.Now().UTC(),
	})
}

func (h *httpHandler) handleSectionStream(c *gin.Context) {
	userKey := c.GetString(userKeyContextKey)
	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx, userKey)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case message, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(message.EventType, realtimeEventPayload{
				Operation:  message.Operation,
				SectionIDs: message.SectionIDs,
				Timestamp:  message.Timestamp.UnixMilli(),
			})
			return true
		case tick := <-ticker.C:
			c.SSEvent(realtimeEventHeartbeat, gin.H{"timestamp": tick.UTC().UnixMilli()})
			return true
		}
	})
}

// uniqueSectionIDs returns the sorted distinct non-empty ids, or nil when none remain.
func uniqueSectionIDs(ids []string) []string {
	var result []string
	for _, id := range ids {
		if id != "" {
			result = append(result, id)
		}
	}
	if len(result) == 0 {
		return nil
	}
	slices.Sort(result)
	return slices.Compact(result)
}
