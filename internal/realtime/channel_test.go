package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "vehicles:route:28", VehiclesTopic("28"))
	assert.Equal(t, "vehicles.route.28", Subject(VehiclesTopic("28")))
	assert.Equal(t, "vehicles.route.CR-Fairmount", Subject(VehiclesTopic("CR-Fairmount")))
	assert.Equal(t, "vehicles.route.Green_B", Subject(VehiclesTopic("Green.B")))
	assert.Equal(t, "vehicles.route._", Subject(VehiclesTopic(" ")))
	assert.Equal(t, "vehicles.route.28.join", JoinSubject(VehiclesTopic("28")))
}

func TestJoinReplyFrom(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		r := joinReplyFrom(&nats.Msg{Data: []byte(`{"status":"ok","response":{"data":[]}}`)}, nil)
		assert.Equal(t, JoinOK, r.Status)
		assert.JSONEq(t, `{"data":[]}`, string(r.Payload))
	})
	t.Run("error with reason", func(t *testing.T) {
		r := joinReplyFrom(&nats.Msg{Data: []byte(`{"status":"error","response":{"reason":"unmatched topic"}}`)}, nil)
		assert.Equal(t, JoinError, r.Status)
		assert.Equal(t, "unmatched topic", r.Reason)
	})
	t.Run("deadline", func(t *testing.T) {
		r := joinReplyFrom(nil, context.DeadlineExceeded)
		assert.Equal(t, JoinTimeout, r.Status)
	})
	t.Run("nats timeout", func(t *testing.T) {
		r := joinReplyFrom(nil, nats.ErrTimeout)
		assert.Equal(t, JoinTimeout, r.Status)
	})
	t.Run("no responders", func(t *testing.T) {
		r := joinReplyFrom(nil, nats.ErrNoResponders)
		assert.Equal(t, JoinError, r.Status)
		assert.Equal(t, "no responders", r.Reason)
	})
	t.Run("other error", func(t *testing.T) {
		r := joinReplyFrom(nil, errors.New("boom"))
		assert.Equal(t, JoinError, r.Status)
		assert.Equal(t, "boom", r.Reason)
	})
	t.Run("garbage", func(t *testing.T) {
		r := joinReplyFrom(&nats.Msg{Data: []byte(`nope`)}, nil)
		assert.Equal(t, JoinError, r.Status)
		assert.Contains(t, r.Reason, "invalid join response")
	})
}
