package feed

import (
	"encoding/json"
	"sync"

	"skate-feed/internal/realtime"
)

type fakeSocket struct {
	mu       sync.Mutex
	channels []*fakeChannel
	events   []string // "create <topic>" / "leave <topic>", in call order
}

func (s *fakeSocket) Channel(topic string) realtime.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := &fakeChannel{sock: s, topic: topic, handlers: map[string]realtime.Handler{}}
	s.channels = append(s.channels, ch)
	s.events = append(s.events, "create "+topic)
	return ch
}

func (s *fakeSocket) record(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *fakeSocket) log() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *fakeSocket) resetLog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func (s *fakeSocket) Close() {}

// byTopic returns every channel ever created for topic, oldest first.
func (s *fakeSocket) byTopic(topic string) []*fakeChannel {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeChannel
	for _, ch := range s.channels {
		if ch.topic == topic {
			out = append(out, ch)
		}
	}
	return out
}

func (s *fakeSocket) created() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.channels)
}

type fakeChannel struct {
	sock  *fakeSocket
	topic string

	mu       sync.Mutex
	handlers map[string]realtime.Handler
	onReply  func(realtime.JoinReply)
	joins    int
	leaves   int
}

func (c *fakeChannel) Topic() string { return c.topic }

func (c *fakeChannel) On(event string, h realtime.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = h
}

func (c *fakeChannel) Join(onReply func(realtime.JoinReply)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joins++
	c.onReply = onReply
}

func (c *fakeChannel) Leave() {
	c.mu.Lock()
	c.leaves++
	c.mu.Unlock()
	c.sock.record("leave " + c.topic)
}

func (c *fakeChannel) leaveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leaves
}

func (c *fakeChannel) reply(r realtime.JoinReply) {
	c.mu.Lock()
	f := c.onReply
	c.mu.Unlock()
	f(r)
}

func (c *fakeChannel) push(event string, payload string) {
	c.mu.Lock()
	h := c.handlers[event]
	c.mu.Unlock()
	if h != nil {
		h(json.RawMessage(payload))
	}
}

type recordingMetrics struct {
	routes   int
	joined   map[realtime.JoinStatus]int
	left     int
	applied  int
	rejected int
	reloads  map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{joined: map[realtime.JoinStatus]int{}, reloads: map[string]int{}}
}

func (m *recordingMetrics) RoutesSubscribed(n int)                   { m.routes = n }
func (m *recordingMetrics) ChannelJoined(status realtime.JoinStatus) { m.joined[status]++ }
func (m *recordingMetrics) ChannelLeft()                             { m.left++ }
func (m *recordingMetrics) SnapshotApplied(int, int)                 { m.applied++ }
func (m *recordingMetrics) SnapshotRejected()                        { m.rejected++ }
func (m *recordingMetrics) ReloadRequested(reason string)            { m.reloads[reason]++ }
