package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

type SocketMetrics interface {
	SocketSetConnected(connected bool)
}

// NATSSocket implements Socket on a single NATS connection.
type NATSSocket struct {
	nc          *nats.Conn
	joinTimeout time.Duration
	logSubjects bool
}

func DialNATS(url string, joinTimeout time.Duration, logSubjects bool, m SocketMetrics) (*NATSSocket, error) {
	nc, err := nats.Connect(url,
		nats.Name("skate-feed"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.SocketSetConnected(false)
			}
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SocketSetConnected(true)
			}
			log.Info().Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SocketSetConnected(false)
			}
			log.Info().Msg("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.SocketSetConnected(true)
	}
	return &NATSSocket{nc: nc, joinTimeout: joinTimeout, logSubjects: logSubjects}, nil
}

func (s *NATSSocket) Channel(topic string) Channel {
	return &natsChannel{
		sock:     s,
		topic:    topic,
		subject:  Subject(topic),
		handlers: make(map[string]Handler),
	}
}

func (s *NATSSocket) Close() {
	if s.nc != nil {
		s.nc.Drain()
		s.nc.Close()
	}
}

type natsChannel struct {
	sock    *NATSSocket
	topic   string
	subject string

	mu         sync.Mutex
	handlers   map[string]Handler
	sub        *nats.Subscription
	joinCancel context.CancelFunc
	left       bool
}

func (c *natsChannel) Topic() string { return c.topic }

func (c *natsChannel) On(event string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = h
}

func (c *natsChannel) Join(onReply func(JoinReply)) {
	c.mu.Lock()
	if c.left {
		c.mu.Unlock()
		return
	}
	sub, err := c.sock.nc.Subscribe(c.subject, c.handleMsg)
	if err != nil {
		c.mu.Unlock()
		go c.reply(onReply, JoinReply{Status: JoinError, Reason: err.Error()})
		return
	}
	c.sub = sub
	ctx, cancel := context.WithTimeout(context.Background(), c.sock.joinTimeout)
	c.joinCancel = cancel
	c.mu.Unlock()

	if c.sock.logSubjects {
		log.Debug().Str("subject", JoinSubject(c.topic)).Msg("nats join request")
	}
	go func() {
		defer cancel()
		msg, err := c.sock.nc.RequestWithContext(ctx, JoinSubject(c.topic), nil)
		c.reply(onReply, joinReplyFrom(msg, err))
	}()
}

func (c *natsChannel) reply(onReply func(JoinReply), r JoinReply) {
	c.mu.Lock()
	left := c.left
	c.mu.Unlock()
	if left || onReply == nil {
		return
	}
	onReply(r)
}

func joinReplyFrom(msg *nats.Msg, err error) JoinReply {
	switch {
	case errors.Is(err, nats.ErrNoResponders):
		return JoinReply{Status: JoinError, Reason: "no responders"}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, nats.ErrTimeout):
		return JoinReply{Status: JoinTimeout}
	case err != nil:
		return JoinReply{Status: JoinError, Reason: err.Error()}
	}
	var resp JoinResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return JoinReply{Status: JoinError, Reason: "invalid join response: " + err.Error()}
	}
	switch resp.Status {
	case JoinOK:
		return JoinReply{Status: JoinOK, Payload: resp.Response}
	case JoinTimeout:
		return JoinReply{Status: JoinTimeout}
	default:
		var er joinErrorResponse
		_ = json.Unmarshal(resp.Response, &er)
		return JoinReply{Status: JoinError, Reason: er.Reason}
	}
}

func (c *natsChannel) handleMsg(msg *nats.Msg) {
	var env Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		log.Warn().Err(err).Str("topic", c.topic).Msg("dropping undecodable envelope")
		return
	}
	c.mu.Lock()
	h, ok := c.handlers[env.Event]
	left := c.left
	c.mu.Unlock()
	if left || !ok {
		return
	}
	h(env.Payload)
}

func (c *natsChannel) Leave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.left {
		return
	}
	c.left = true
	if c.joinCancel != nil {
		c.joinCancel()
	}
	if c.sub != nil {
		if err := c.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			log.Warn().Err(err).Str("topic", c.topic).Msg("nats unsubscribe")
		}
	}
}
