package northbound

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlink/tagbridge/pkg/model"
	"github.com/gridlink/tagbridge/pkg/subscription"
	"github.com/gridlink/tagbridge/pkg/tag"
	"github.com/gridlink/tagbridge/pkg/wire"
)

type countingObserver struct {
	frames chan wire.FrameType
}

func (o *countingObserver) FrameSent(t wire.FrameType) {
	select {
	case o.frames <- t:
	default:
	}
}
func (o *countingObserver) ClientConnected()    {}
func (o *countingObserver) ClientDisconnected() {}

func testSpace(t *testing.T) (*model.AddressSpace, []*model.Node) {
	t.Helper()
	space := model.NewAddressSpace(model.DefaultNamespace)
	nodes, err := model.Synthesize(space, []model.TagDecl{
		{ID: "numeric.random.double", Type: model.DataTypeFloat64},
		{ID: "numeric.random.int32", Type: model.DataTypeInt32},
	})
	require.NoError(t, err)
	return space, nodes
}

func startServer(t *testing.T, space *model.AddressSpace, cfg Config) (*Server, string) {
	t.Helper()
	cfg.Listen = "127.0.0.1:0"
	if cfg.NotifyInterval == 0 {
		cfg.NotifyInterval = 5 * time.Millisecond
	}
	srv := New(space, cfg)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})
	return srv, srv.Addr().String()
}

func write(t *testing.T, n *model.Node, v tag.Value, ts time.Time) {
	t.Helper()
	require.NoError(t, n.Write(tag.Sample{Value: v, Timestamp: ts, Quality: tag.QualityGood}, time.Now()))
}

func getJSON(t *testing.T, rawURL string, v any) int {
	t.Helper()
	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func dial(t *testing.T, addr, query string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/api/subscribe?"+query, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn, enc wire.Encoding) *wire.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	if enc.Binary() {
		assert.Equal(t, websocket.BinaryMessage, mt)
	} else {
		assert.Equal(t, websocket.TextMessage, mt)
	}
	f, err := wire.DecodeFrame(enc, data)
	require.NoError(t, err)
	return f
}

func TestListNodes(t *testing.T) {
	space, nodes := testSpace(t)
	write(t, nodes[0], tag.Float(3.14), time.Unix(100, 0))
	_, addr := startServer(t, space, Config{})

	var views []NodeView
	require.Equal(t, http.StatusOK, getJSON(t, "http://"+addr+"/api/nodes", &views))
	require.Len(t, views, 2)

	assert.Equal(t, "ns=2;s=numeric.random.double", views[0].NodeID)
	assert.Equal(t, model.DefaultFolder, views[0].Folder)
	assert.True(t, views[0].Initialized)
	assert.True(t, views[0].Value.Equal(tag.Float(3.14)))
	assert.Equal(t, tag.QualityGood, views[0].Quality)

	assert.False(t, views[1].Initialized)
	assert.Equal(t, tag.QualityBad, views[1].Quality)
	assert.True(t, views[1].Value.Equal(tag.Int(0)))

	require.Equal(t, http.StatusOK, getJSON(t, "http://"+addr+"/api/nodes?folder=Other", &views))
	assert.Empty(t, views)
}

func TestGetNode(t *testing.T) {
	space, nodes := testSpace(t)
	write(t, nodes[1], tag.Int(42), time.Unix(100, 0))
	_, addr := startServer(t, space, Config{})

	var v NodeView
	require.Equal(t, http.StatusOK, getJSON(t, "http://"+addr+"/api/nodes/numeric.random.int32", &v))
	assert.True(t, v.Value.Equal(tag.Int(42)))
	assert.Equal(t, "int32", v.DataType)

	byNodeID := "http://" + addr + "/api/nodes/" + url.PathEscape("ns=2;s=numeric.random.int32")
	require.Equal(t, http.StatusOK, getJSON(t, byNodeID, &v))
	assert.Equal(t, "numeric.random.int32", v.TagID)

	var e map[string]string
	assert.Equal(t, http.StatusNotFound, getJSON(t, "http://"+addr+"/api/nodes/missing", &e))
	assert.NotEmpty(t, e["error"])

	wrongNS := "http://" + addr + "/api/nodes/" + url.PathEscape("ns=3;s=numeric.random.int32")
	assert.Equal(t, http.StatusNotFound, getJSON(t, wrongNS, nil))
}

func TestHealth(t *testing.T) {
	space, _ := testSpace(t)
	_, addr := startServer(t, space, Config{
		SouthboundState: func() string { return "RUNNING" },
		Version:         "1.0.0-test",
	})

	var h Health
	require.Equal(t, http.StatusOK, getJSON(t, "http://"+addr+"/healthz", &h))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "RUNNING", h.Southbound)
	assert.Equal(t, 2, h.Nodes)
	assert.Equal(t, uint16(2), h.Namespace)
	assert.Equal(t, "1.0.0-test", h.Version)
}

func TestMetricsMounted(t *testing.T) {
	space, _ := testSpace(t)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	_, addr := startServer(t, space, Config{Metrics: metrics})
	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, addr = startServer(t, space, Config{})
	resp, err = http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSubscribeStreamsChanges(t *testing.T) {
	space, nodes := testSpace(t)
	write(t, nodes[0], tag.Float(1.5), time.Unix(100, 0))
	obs := &countingObserver{frames: make(chan wire.FrameType, 16)}
	srv, addr := startServer(t, space, Config{Observer: obs})

	conn := dial(t, addr, "nodes=numeric.random.double&min=0s&max=1m")

	f := readFrame(t, conn, wire.EncodingJSON)
	assert.Equal(t, wire.FrameSubscribed, f.Type)
	assert.NotEmpty(t, f.ClientID)
	subID := f.SubscriptionID

	f = readFrame(t, conn, wire.EncodingJSON)
	assert.Equal(t, wire.FramePriming, f.Type)
	assert.Equal(t, subID, f.SubscriptionID)
	require.Len(t, f.Values, 1)
	assert.True(t, f.Values[0].Value.Equal(tag.Float(1.5)))
	assert.Equal(t, "ns=2;s=numeric.random.double", f.Values[0].NodeID)

	require.Eventually(t, func() bool { return srv.Subscribers() == 1 }, time.Second, time.Millisecond)

	// Unsubscribed node changes are not streamed.
	write(t, nodes[1], tag.Int(5), time.Unix(101, 0))
	srv.NodeChanged(nodes[1])

	write(t, nodes[0], tag.Float(2.5), time.Unix(101, 0))
	srv.NodeChanged(nodes[0])

	f = readFrame(t, conn, wire.EncodingJSON)
	assert.Equal(t, wire.FrameChange, f.Type)
	require.Len(t, f.Values, 1)
	assert.Equal(t, "numeric.random.double", f.Values[0].TagID)
	assert.True(t, f.Values[0].Value.Equal(tag.Float(2.5)))
	assert.True(t, time.Unix(101, 0).Equal(f.Values[0].SourceTimestamp))

	seen := map[wire.FrameType]bool{}
	for len(seen) < 3 {
		select {
		case ft := <-obs.frames:
			seen[ft] = true
		case <-time.After(time.Second):
			t.Fatalf("observer saw %v", seen)
		}
	}

	conn.Close()
	require.Eventually(t, func() bool { return srv.Subscribers() == 0 }, time.Second, time.Millisecond)
}

func TestSubscribeCBORAllNodes(t *testing.T) {
	space, nodes := testSpace(t)
	srv, addr := startServer(t, space, Config{})

	conn := dial(t, addr, "encoding=cbor")

	f := readFrame(t, conn, wire.EncodingCBOR)
	assert.Equal(t, wire.FrameSubscribed, f.Type)

	f = readFrame(t, conn, wire.EncodingCBOR)
	assert.Equal(t, wire.FramePriming, f.Type)
	require.Len(t, f.Values, 2)
	assert.Equal(t, tag.QualityBad, f.Values[0].Quality)

	write(t, nodes[1], tag.Int(-7), time.Unix(200, 0))
	srv.NodeChanged(nodes[1])

	f = readFrame(t, conn, wire.EncodingCBOR)
	assert.Equal(t, wire.FrameChange, f.Type)
	v, ok := f.Value("numeric.random.int32")
	require.True(t, ok)
	assert.True(t, v.Value.Equal(tag.Int(-7)))
}

func TestSubscribeHeartbeat(t *testing.T) {
	space, _ := testSpace(t)
	_, addr := startServer(t, space, Config{})

	conn := dial(t, addr, "nodes=numeric.random.int32&max=50ms")
	assert.Equal(t, wire.FrameSubscribed, readFrame(t, conn, wire.EncodingJSON).Type)
	assert.Equal(t, wire.FramePriming, readFrame(t, conn, wire.EncodingJSON).Type)

	f := readFrame(t, conn, wire.EncodingJSON)
	assert.Equal(t, wire.FrameHeartbeat, f.Type)
}

func TestSubscribeRejectsBadRequests(t *testing.T) {
	space, _ := testSpace(t)
	_, addr := startServer(t, space, Config{})

	for _, query := range []string{
		"nodes=missing",
		"encoding=xml",
		"min=fast",
		"min=2m&max=1m",
	} {
		t.Run(query, func(t *testing.T) {
			var e map[string]string
			status := getJSON(t, "http://"+addr+"/api/subscribe?"+query, &e)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.NotEmpty(t, e["error"])
		})
	}
}

func TestStopClosesSubscribers(t *testing.T) {
	space, _ := testSpace(t)
	srv, addr := startServer(t, space, Config{})

	conn := dial(t, addr, "")
	readFrame(t, conn, wire.EncodingJSON)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	assert.Equal(t, 0, srv.Subscribers())
	assert.ErrorIs(t, srv.Start(context.Background()), ErrStopped)

	// Stop is idempotent.
	assert.NoError(t, srv.Stop(ctx))
}

func pendingCount(srv *Server, subID uint32) (int, bool) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	p, ok := srv.pending[subID]
	return len(p), ok
}

func TestDispatchDropsRemovedSubscription(t *testing.T) {
	space, _ := testSpace(t)
	srv, _ := startServer(t, space, Config{NotifyInterval: time.Hour})

	srv.dispatch(subscription.Notification{SubscriptionID: 9999, Timestamp: time.Now()})
	_, ok := pendingCount(srv, 9999)
	assert.False(t, ok, "unknown subscription must not be buffered")

	id, err := srv.subs.Subscribe([]string{"numeric.random.double"}, 0, time.Minute, nil)
	require.NoError(t, err)
	srv.dispatch(subscription.Notification{SubscriptionID: id, Timestamp: time.Now()})
	n, ok := pendingCount(srv, id)
	require.True(t, ok)
	assert.Equal(t, 1, n)

	srv.discard(id)
	_, ok = pendingCount(srv, id)
	assert.False(t, ok)

	// A notification racing the removal is dropped instead of re-buffered.
	srv.dispatch(subscription.Notification{SubscriptionID: id, Timestamp: time.Now()})
	_, ok = pendingCount(srv, id)
	assert.False(t, ok)
}

func TestRegisterRejectsOversizedBacklog(t *testing.T) {
	space, _ := testSpace(t)
	srv, _ := startServer(t, space, Config{NotifyInterval: time.Hour})

	id, err := srv.subs.Subscribe([]string{"numeric.random.double"}, 0, time.Minute, nil)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		srv.dispatch(subscription.Notification{SubscriptionID: id, Timestamp: time.Now()})
	}

	// Room for the subscribed frame only.
	c := newClient(id, "backlogged", nil, wire.EncodingJSON, 1)
	assert.False(t, srv.register(c))
	assert.Equal(t, 0, srv.Subscribers())
	_, ok := pendingCount(srv, id)
	assert.False(t, ok)

	srv.discard(id)
	_, err = srv.subs.Get(id)
	assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
}
