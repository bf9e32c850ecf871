package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqm-service/internal/service"
)

func dialWS(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })

	initial := readUntil(t, conn, "initial_status")
	assert.NotNil(t, initial.Data)
	return conn
}

// readUntil skips messages until one of the wanted type arrives
func readUntil(t *testing.T, conn *websocket.Conn, messageType string) WebSocketMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var message WebSocketMessage
		require.NoError(t, conn.ReadJSON(&message))
		if message.Type == messageType {
			return message
		}
	}
}

func TestWebSocketPingAndStats(t *testing.T) {
	api := newTestAPI(t, testConfig(closedPort(t)))
	server := httptest.NewServer(api.router)
	defer server.Close()

	conn := dialWS(t, server, "/ws/events")

	require.NoError(t, conn.WriteJSON(WebSocketMessage{Type: "ping", RequestID: "req-1"}))
	pong := readUntil(t, conn, "pong")
	assert.Equal(t, "req-1", pong.RequestID)

	stats := api.ws.connections.GetStats()
	assert.Equal(t, 1, stats.TotalConnections)
	assert.Equal(t, 1, stats.ByType[ClientTypeEvents])

	require.NoError(t, conn.WriteJSON(WebSocketMessage{Type: "bogus"}))
	errMsg := readUntil(t, conn, "error")
	assert.Contains(t, errMsg.Data.(map[string]interface{})["error"], "bogus")
}

func TestWebSocketEventsStream(t *testing.T) {
	api := newTestAPI(t, testConfig(startSensor(t)))
	server := httptest.NewServer(api.router)
	defer server.Close()

	conn := dialWS(t, server, "/ws/events")

	resp, err := http.Post(server.URL+"/api/v1/sensor/connect", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	message := readUntil(t, conn, "sensor_event")
	event := message.Data.(map[string]interface{})
	assert.Equal(t, service.EventConnected, event["type"])
}

func TestWebSocketCommand(t *testing.T) {
	api := newTestAPI(t, testConfig(startSensor(t)))
	server := httptest.NewServer(api.router)
	defer server.Close()

	conn := dialWS(t, server, "/ws/events")
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/v1/sensor/connect", nil).Code)

	require.NoError(t, conn.WriteJSON(WebSocketMessage{
		Type:      "command",
		Data:      map[string]interface{}{"command": "cx"},
		RequestID: "req-2",
	}))

	response := readUntil(t, conn, "command_response")
	assert.Equal(t, "req-2", response.RequestID)
	data := response.Data.(map[string]interface{})
	assert.Equal(t, true, data["success"])
	result := data["result"].(map[string]interface{})
	assert.Equal(t, "r,cx", result["response"])
}

func TestWebSocketCommandRejectsBadRetries(t *testing.T) {
	api := newTestAPI(t, testConfig(startSensor(t)))
	server := httptest.NewServer(api.router)
	defer server.Close()

	conn := dialWS(t, server, "/ws/events")
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/v1/sensor/connect", nil).Code)

	for _, retries := range []interface{}{1e18, 1.5, -1, "3"} {
		require.NoError(t, conn.WriteJSON(WebSocketMessage{
			Type: "command",
			Data: map[string]interface{}{"command": "cx", "retries": retries},
		}))
		errMsg := readUntil(t, conn, "error")
		assert.Contains(t, errMsg.Data.(map[string]interface{})["error"], "retries must be an integer", "retries=%v", retries)
	}
}

func TestWebSocketReadingsStream(t *testing.T) {
	api := newTestAPI(t, testConfig(startSensor(t)))
	server := httptest.NewServer(api.router)
	defer server.Close()

	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/v1/sensor/connect", nil).Code)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/v1/sensor/listen/start", nil).Code)

	conn := dialWS(t, server, "/ws/readings")
	require.Equal(t, http.StatusAccepted, api.do(t, http.MethodPost, "/api/v1/sensor/send", map[string]interface{}{"command": "ux"}).Code)

	message := readUntil(t, conn, "readings")
	batch := message.Data.(map[string]interface{})
	assert.Equal(t, []interface{}{"r,ux"}, batch["readings"])
}

func TestOriginChecker(t *testing.T) {
	request := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws/events", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	open := originChecker([]string{"*"})
	assert.True(t, open(request("http://elsewhere.example")))

	listed := originChecker([]string{"http://localhost:3000"})
	assert.True(t, listed(request("http://localhost:3000")))
	assert.True(t, listed(request("")))
	assert.False(t, listed(request("http://elsewhere.example")))
}

func TestConnectionManagerUnregisterClosesOnce(t *testing.T) {
	cm := NewConnectionManager()
	client := &Client{ID: "c1", Type: ClientTypeReadings, Send: make(chan []byte, 1)}
	cm.Register(client)

	assert.Empty(t, cm.Broadcast(ClientTypeReadings, []byte("a")))
	assert.Equal(t, []string{"c1"}, cm.Broadcast(ClientTypeReadings, []byte("b")), "queue full")
	assert.Empty(t, cm.Broadcast(ClientTypeEvents, []byte("c")))

	cm.Unregister(client)
	cm.Unregister(client)
	assert.False(t, cm.SendTo(client, []byte("d")))
	assert.Equal(t, 0, cm.Count(ClientTypeReadings))

	msg, ok := <-client.Send
	assert.True(t, ok)
	assert.Equal(t, "a", string(msg))
	_, ok = <-client.Send
	assert.False(t, ok)
}
