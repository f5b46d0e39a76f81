package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func runServer(t *testing.T) string {
	t.Helper()
	s, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	require.NoError(t, err)
	go s.Start()
	require.True(t, s.ReadyForConnections(waitFor), "nats server not ready")
	t.Cleanup(s.Shutdown)
	return s.ClientURL()
}

func connect(t *testing.T, url string) *nats.Conn {
	t.Helper()
	nc, err := nats.Connect(url)
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	return nc
}

func dial(t *testing.T, url string, joinTimeout time.Duration) *NATSSocket {
	t.Helper()
	sock, err := DialNATS(url, joinTimeout, false, nil)
	require.NoError(t, err)
	t.Cleanup(sock.Close)
	return sock
}

func publishEvent(t *testing.T, nc *nats.Conn, topic, event, payload string) {
	t.Helper()
	env := Envelope{Event: event}
	if payload != "" {
		env.Payload = json.RawMessage(payload)
	}
	b, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, nc.Publish(Subject(topic), b))
	require.NoError(t, nc.Flush())
}

func serveJoin(t *testing.T, nc *nats.Conn, topic, reply string) {
	t.Helper()
	_, err := nc.Subscribe(JoinSubject(topic), func(msg *nats.Msg) {
		_ = msg.Respond([]byte(reply))
	})
	require.NoError(t, err)
	require.NoError(t, nc.Flush())
}

func joinAndWait(t *testing.T, ch Channel) JoinReply {
	t.Helper()
	replies := make(chan JoinReply, 1)
	ch.Join(func(r JoinReply) { replies <- r })
	select {
	case r := <-replies:
		return r
	case <-time.After(waitFor):
		t.Fatal("no join reply")
		return JoinReply{}
	}
}

func TestNATSChannelJoinOKAndDispatch(t *testing.T) {
	url := runServer(t)
	peer := connect(t, url)
	topic := VehiclesTopic("28")
	serveJoin(t, peer, topic, `{"status":"ok","response":{"data":[]}}`)

	ch := dial(t, url, time.Second).Channel(topic)
	vehicleEvents := make(chan json.RawMessage, 4)
	authEvents := make(chan struct{}, 4)
	ch.On(EventVehicles, func(p json.RawMessage) { vehicleEvents <- p })
	ch.On(EventAuthExpired, func(json.RawMessage) { authEvents <- struct{}{} })

	r := joinAndWait(t, ch)
	require.Equal(t, JoinOK, r.Status)
	assert.JSONEq(t, `{"data":[]}`, string(r.Payload))

	publishEvent(t, peer, topic, "presence_diff", `{}`)
	require.NoError(t, peer.Publish(Subject(topic), []byte(`not an envelope`)))
	publishEvent(t, peer, topic, EventVehicles, `{"data":[{"id":"y1261"}]}`)
	publishEvent(t, peer, topic, EventAuthExpired, ``)

	select {
	case p := <-vehicleEvents:
		assert.JSONEq(t, `{"data":[{"id":"y1261"}]}`, string(p))
	case <-time.After(waitFor):
		t.Fatal("vehicles event not delivered")
	}
	select {
	case <-authEvents:
	case <-time.After(waitFor):
		t.Fatal("auth_expired event not delivered")
	}
	assert.Empty(t, vehicleEvents)
}

func TestNATSChannelJoinErrorReply(t *testing.T) {
	url := runServer(t)
	peer := connect(t, url)
	topic := VehiclesTopic("28")
	serveJoin(t, peer, topic, `{"status":"error","response":{"reason":"unmatched topic"}}`)

	r := joinAndWait(t, dial(t, url, time.Second).Channel(topic))
	assert.Equal(t, JoinError, r.Status)
	assert.Equal(t, "unmatched topic", r.Reason)
}

func TestNATSChannelJoinTimeout(t *testing.T) {
	url := runServer(t)
	peer := connect(t, url)
	topic := VehiclesTopic("5")
	_, err := peer.Subscribe(JoinSubject(topic), func(*nats.Msg) {})
	require.NoError(t, err)
	require.NoError(t, peer.Flush())

	r := joinAndWait(t, dial(t, url, 100*time.Millisecond).Channel(topic))
	assert.Equal(t, JoinTimeout, r.Status)
}

func TestNATSChannelJoinNoResponders(t *testing.T) {
	url := runServer(t)

	r := joinAndWait(t, dial(t, url, time.Second).Channel(VehiclesTopic("5")))
	assert.Equal(t, JoinError, r.Status)
	assert.Equal(t, "no responders", r.Reason)
}

func TestNATSChannelLeaveSuppressesLateReplyAndEvents(t *testing.T) {
	url := runServer(t)
	peer := connect(t, url)
	topic := VehiclesTopic("28")
	pending := make(chan *nats.Msg, 1)
	_, err := peer.Subscribe(JoinSubject(topic), func(msg *nats.Msg) { pending <- msg })
	require.NoError(t, err)
	require.NoError(t, peer.Flush())

	ch := dial(t, url, time.Second).Channel(topic)
	calls := make(chan string, 4)
	ch.On(EventVehicles, func(json.RawMessage) { calls <- "event" })
	ch.Join(func(JoinReply) { calls <- "reply" })

	var req *nats.Msg
	select {
	case req = <-pending:
	case <-time.After(waitFor):
		t.Fatal("join request not received")
	}

	ch.Leave()
	ch.Leave()
	require.NoError(t, req.Respond([]byte(`{"status":"ok","response":{"data":[]}}`)))
	publishEvent(t, peer, topic, EventVehicles, `{"data":[]}`)

	select {
	case c := <-calls:
		t.Fatalf("callback %q after Leave", c)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNATSChannelJoinAfterLeaveIsNoop(t *testing.T) {
	url := runServer(t)
	ch := dial(t, url, time.Second).Channel(VehiclesTopic("28"))
	ch.Leave()

	called := make(chan struct{}, 1)
	ch.Join(func(JoinReply) { called <- struct{}{} })

	select {
	case <-called:
		t.Fatal("join reply after Leave")
	case <-time.After(100 * time.Millisecond):
	}
}
