// Package realtime defines the per-route publish/subscribe channels the
// vehicle feed is delivered over, plus a NATS-backed implementation.
package realtime

import (
	"encoding/json"
	"strings"
)

const (
	EventVehicles    = "vehicles"
	EventAuthExpired = "auth_expired"
)

// VehiclesTopic returns the channel topic carrying vehicles for routeID.
func VehiclesTopic(routeID string) string {
	return "vehicles:route:" + routeID
}

type JoinStatus string

const (
	JoinOK      JoinStatus = "ok"
	JoinError   JoinStatus = "error"
	JoinTimeout JoinStatus = "timeout"
)

// JoinReply is the acknowledgement of a join. Payload is set for JoinOK and
// has the same shape as a vehicles event; Reason is set for JoinError.
type JoinReply struct {
	Status  JoinStatus
	Payload json.RawMessage
	Reason  string
}

// Handler receives the raw payload of an inbound event.
type Handler func(payload json.RawMessage)

// Channel is one live subscription on a Socket. Handlers must be
// registered before Join. Join never calls onReply before returning. Leave
// stops delivery of later events and join replies, but a callback already
// running when Leave is called may still complete; consumers that replace
// channels must check which channel an event came from.
type Channel interface {
	Topic() string
	On(event string, h Handler)
	Join(onReply func(JoinReply))
	Leave()
}

// Socket is a shared connection that hands out channels by topic.
type Socket interface {
	Channel(topic string) Channel
	Close()
}

// Envelope is the wire format of an event published on a channel.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinResponse is the wire format of a join acknowledgement.
type JoinResponse struct {
	Status   JoinStatus      `json:"status"`
	Response json.RawMessage `json:"response,omitempty"`
}

type joinErrorResponse struct {
	Reason string `json:"reason"`
}

// Subject maps a channel topic such as "vehicles:route:28" onto a NATS
// subject ("vehicles.route.28").
func Subject(topic string) string {
	parts := strings.Split(topic, ":")
	for i, p := range parts {
		parts[i] = SubjectToken(p)
	}
	return strings.Join(parts, ".")
}

// JoinSubject is the request subject a channel joins through.
func JoinSubject(topic string) string {
	return Subject(topic) + ".join"
}

// SubjectToken sanitizes s for use as a single NATS subject token.
func SubjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
