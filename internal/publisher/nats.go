package publisher

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"skate-feed/internal/realtime"
)

// NATSPublisher plays the server side of the vehicles channel protocol:
// it publishes events on channel subjects and answers join requests.
type NATSPublisher struct {
	nc          *nats.Conn
	logSubjects bool
	metrics     PublisherMetrics
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
	JoinServedInc()
}

func NewNATSPublisher(url string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("skate-feed-sim"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Info().Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Info().Msg("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, logSubjects: logSubjects, metrics: m}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// PublishEvent sends event with payload to every subscriber of topic.
func (p *NATSPublisher) PublishEvent(topic, event string, payload any) error {
	subject := realtime.Subject(topic)
	b, err := encodeEnvelope(event, payload)
	if err != nil {
		return err
	}
	if p.logSubjects {
		log.Debug().Str("subject", subject).Str("event", event).Msg("nats publish")
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

// Subscription is a handle on a served subject.
type Subscription interface {
	Unsubscribe() error
}

// ServeJoins answers join requests for topic with the value returned by
// snapshot. Unsubscribe the returned subscription to stop serving.
func (p *NATSPublisher) ServeJoins(topic string, snapshot func() any) (Subscription, error) {
	return p.nc.Subscribe(realtime.JoinSubject(topic), func(msg *nats.Msg) {
		b, err := encodeJoinOK(snapshot())
		if err != nil {
			log.Error().Err(err).Str("topic", topic).Msg("encode join reply")
			return
		}
		if err := msg.Respond(b); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("respond to join")
			return
		}
		if p.metrics != nil {
			p.metrics.JoinServedInc()
		}
	})
}

func encodeEnvelope(event string, payload any) ([]byte, error) {
	env := realtime.Envelope{Event: event}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

func encodeJoinOK(payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(realtime.JoinResponse{Status: realtime.JoinOK, Response: raw})
}
