package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stuartshay/walkroute/internal/geo"
	"github.com/stuartshay/walkroute/internal/heading"
	"github.com/stuartshay/walkroute/internal/route"
	"github.com/stuartshay/walkroute/internal/session"
)

func newTestServer(t *testing.T) (*session.Manager, *httptest.Server) {
	t.Helper()

	sessions := session.NewManager(heading.Options{})
	mux := http.NewServeMux()
	mux.Handle("GET /ws/sessions/{id}", NewHandler(sessions))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return sessions, srv
}

func dial(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions/" + id
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) session.Event {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev session.Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHandler_UnknownSession(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ws/sessions/missing")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestHandler_HeadingRoundTrip(t *testing.T) {
	sessions, srv := newTestServer(t)
	sess := sessions.Create()
	conn := dial(t, srv, sess.ID)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageHeading, Heading: 45}))

	ev := readEvent(t, conn)
	assert.Equal(t, session.EventHeading, ev.Type)
	assert.Equal(t, sess.ID, ev.SessionID)
	require.NotNil(t, ev.Heading)
	assert.InDelta(t, 45, ev.Heading.Heading, 1e-9)
	assert.EqualValues(t, 1, ev.Heading.Seq)
}

func TestHandler_HeadingIsNormalized(t *testing.T) {
	sessions, srv := newTestServer(t)
	sess := sessions.Create()
	conn := dial(t, srv, sess.ID)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageHeading, Heading: -45}))

	ev := readEvent(t, conn)
	require.NotNil(t, ev.Heading)
	assert.InDelta(t, 315, ev.Heading.Heading, 1e-9)
}

func TestHandler_PositionUpdatesSession(t *testing.T) {
	sessions, srv := newTestServer(t)
	sess := sessions.Create()
	conn := dial(t, srv, sess.ID)

	// malformed and unknown frames are ignored
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(Message{Type: "wave"}))
	require.NoError(t, conn.WriteJSON(Message{Type: MessagePosition, Latitude: 52.52, Longitude: 13.405}))

	ev := readEvent(t, conn)
	assert.Equal(t, session.EventPosition, ev.Type)
	require.NotNil(t, ev.Position)
	assert.InDelta(t, 52.52, ev.Position.Latitude, 1e-9)

	p, err := sess.Position()
	require.NoError(t, err)
	assert.InDelta(t, 13.405, p.Longitude, 1e-9)
}

func TestHandler_ServerSideEventsAreRelayed(t *testing.T) {
	sessions, srv := newTestServer(t)
	sess := sessions.Create()
	conn := dial(t, srv, sess.ID)

	// inbound frames are only read once the subscription exists
	require.NoError(t, conn.WriteJSON(Message{Type: MessageHeading, Heading: 90}))
	readEvent(t, conn)

	origin := geo.Point{Latitude: 52.52, Longitude: 13.405}
	waypoint := geo.Point{Latitude: 52.53, Longitude: 13.405}
	sess.SetRoute(&route.RoundTrip{
		Plan:     route.Plan{Origin: origin, Waypoint: waypoint},
		Outbound: &route.Route{Geometry: []geo.Point{origin, waypoint}},
	})
	_, err := sess.StartTracking()
	require.NoError(t, err)

	ev := readEvent(t, conn)
	assert.Equal(t, session.EventRoute, ev.Type)
	assert.Equal(t, []geo.Point{origin, waypoint, origin}, ev.Route)

	ev = readEvent(t, conn)
	assert.Equal(t, session.EventStarted, ev.Type)
	require.NotNil(t, ev.Stats)
	assert.Equal(t, "00:00:00", ev.Stats.Elapsed)
}

func TestHandler_SessionRemovalClosesConnection(t *testing.T) {
	sessions, srv := newTestServer(t)
	sess := sessions.Create()
	conn := dial(t, srv, sess.ID)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageHeading, Heading: 90}))
	readEvent(t, conn)

	require.NoError(t, sessions.Remove(sess.ID))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err.Error())
}
