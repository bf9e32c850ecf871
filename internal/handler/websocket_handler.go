// internal/handler/websocket_handler.go
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"sqm-service/internal/config"
	"sqm-service/internal/service"
	"sqm-service/internal/utils"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	writeWait      = 10 * time.Second
	commandTimeout = 60 * time.Second
)

// WebSocketHandler streams readings and sensor events to WebSocket clients
type WebSocketHandler struct {
	upgrader      websocket.Upgrader
	connections   *ConnectionManager
	sensorService *service.SensorService
	events        <-chan service.Event
	interval      time.Duration
	logger        *utils.ServiceLogger
}

// NewWebSocketHandler creates a new WebSocket handler. Readings are drained
// every interval while at least one readings client is connected. Sensor
// events are buffered from construction on and forwarded once Run starts.
func NewWebSocketHandler(sensorService *service.SensorService, serverConfig *config.ServerConfig, logger *zap.Logger) *WebSocketHandler {
	interval := serverConfig.StreamInterval
	if interval <= 0 {
		interval = time.Second
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(serverConfig.AllowedOrigins),
	}

	handler := &WebSocketHandler{
		upgrader:      upgrader,
		connections:   NewConnectionManager(),
		sensorService: sensorService,
		interval:      interval,
		logger:        utils.NewServiceLogger(logger, "websocket-handler"),
	}
	if bus := sensorService.Events(); bus != nil {
		handler.events = bus.Subscribe(service.AllEvents)
	}

	return handler
}

// originChecker accepts requests without an Origin header and, unless "*" is
// configured, only the listed origins
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// Run pumps readings and bus events to clients until ctx is done, then
// disconnects every client
func (h *WebSocketHandler) Run(ctx context.Context) {
	events := h.events
	if events != nil {
		defer h.sensorService.Events().Unsubscribe(events)
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.connections.CloseAll()
			return

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			h.broadcast(ClientTypeEvents, &WebSocketMessage{
				Type:      "sensor_event",
				Data:      event,
				Timestamp: time.Now(),
			})

		case <-ticker.C:
			h.pushReadings()
		}
	}
}

// pushReadings drains the buffer only when someone is listening, so HTTP
// collectors keep their readings otherwise
func (h *WebSocketHandler) pushReadings() {
	if h.connections.Count(ClientTypeReadings) == 0 {
		return
	}

	batch := h.sensorService.Readings()
	if batch.Count == 0 {
		return
	}

	h.broadcast(ClientTypeReadings, &WebSocketMessage{
		Type:      "readings",
		Data:      batch,
		Timestamp: time.Now(),
	})
}

// HandleReadingsConnection streams drained readings batches
// @Summary Readings stream
// @Description WebSocket pushing readings collected in continuous read mode
// @Tags WebSocket
// @Router /ws/readings [get]
func (h *WebSocketHandler) HandleReadingsConnection(c *gin.Context) {
	h.handleConnection(c, ClientTypeReadings)
}

// HandleEventConnection streams sensor events
// @Summary Event stream
// @Description WebSocket pushing sensor connection and command events
// @Tags WebSocket
// @Router /ws/events [get]
func (h *WebSocketHandler) HandleEventConnection(c *gin.Context) {
	h.handleConnection(c, ClientTypeEvents)
}

func (h *WebSocketHandler) handleConnection(c *gin.Context, clientType string) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:          uuid.New().String(),
		Connection:  conn,
		Send:        make(chan []byte, 256),
		Type:        clientType,
		UserAgent:   c.Request.UserAgent(),
		RemoteAddr:  c.Request.RemoteAddr,
		ConnectedAt: time.Now(),
	}

	h.connections.Register(client)
	h.logger.Info("WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("type", clientType),
		zap.String("remote_addr", client.RemoteAddr),
	)

	h.sendMessage(client, &WebSocketMessage{
		Type:      "initial_status",
		Data:      h.sensorService.Status(),
		Timestamp: time.Now(),
	})

	go h.handleClientRead(client)
	go h.handleClientWrite(client)
}

// handleClientRead handles reading messages from WebSocket client
func (h *WebSocketHandler) handleClientRead(client *Client) {
	defer func() {
		h.connections.Unregister(client)
		client.Connection.Close()
		h.logger.Info("WebSocket client disconnected", zap.String("client_id", client.ID))
	}()

	client.Connection.SetReadDeadline(time.Now().Add(pongWait))
	client.Connection.SetPongHandler(func(string) error {
		client.Connection.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := client.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
			}
			break
		}

		var message WebSocketMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			h.sendError(client, "invalid message")
			continue
		}

		h.handleClientMessage(client, &message)
	}
}

// handleClientWrite handles writing messages to WebSocket client
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Error("WebSocket write error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
				return
			}

		case <-ticker.C:
			client.Connection.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientMessage handles incoming client messages
func (h *WebSocketHandler) handleClientMessage(client *Client, message *WebSocketMessage) {
	switch message.Type {
	case "ping":
		h.sendMessage(client, &WebSocketMessage{
			Type:      "pong",
			RequestID: message.RequestID,
			Timestamp: time.Now(),
		})
	case "status":
		h.sendMessage(client, &WebSocketMessage{
			Type:      "status",
			Data:      h.sensorService.Status(),
			RequestID: message.RequestID,
			Timestamp: time.Now(),
		})
	case "command":
		h.handleCommand(client, message)
	default:
		h.logger.Warn("Unknown message type",
			zap.String("type", message.Type),
			zap.String("client_id", client.ID),
		)
		h.sendError(client, "unknown message type: "+message.Type)
	}
}

// handleCommand runs a command/response exchange for the client
func (h *WebSocketHandler) handleCommand(client *Client, message *WebSocketMessage) {
	data, ok := message.Data.(map[string]interface{})
	if !ok {
		h.sendError(client, "invalid command data")
		return
	}

	command, ok := data["command"].(string)
	if !ok || command == "" {
		h.sendError(client, "command is required")
		return
	}

	req := &service.CommandRequest{Command: command}
	if raw, present := data["retries"]; present {
		retries, ok := raw.(float64)
		if !ok || retries != math.Trunc(retries) || retries < 0 || retries > service.MaxRetries {
			h.sendError(client, fmt.Sprintf("retries must be an integer between 0 and %d", service.MaxRetries))
			return
		}
		n := int(retries)
		req.Retries = &n
	}

	go h.executeCommand(client, req, message.RequestID)
}

// executeCommand executes a sensor command
func (h *WebSocketHandler) executeCommand(client *Client, req *service.CommandRequest, requestID string) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	result, err := h.sensorService.SendCommand(ctx, req)

	data := map[string]interface{}{
		"command": req.Command,
		"success": err == nil,
		"result":  result,
	}
	if err != nil {
		data["error"] = err.Error()
	}

	h.sendMessage(client, &WebSocketMessage{
		Type:      "command_response",
		Data:      data,
		RequestID: requestID,
		Timestamp: time.Now(),
	})
}

// sendMessage sends a message to a client
func (h *WebSocketHandler) sendMessage(client *Client, message *WebSocketMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	if !h.connections.SendTo(client, messageBytes) {
		h.logger.Warn("Client gone or send channel full, dropping message",
			zap.String("client_id", client.ID),
		)
	}
}

// sendError sends an error message to a client
func (h *WebSocketHandler) sendError(client *Client, errorMsg string) {
	h.sendMessage(client, &WebSocketMessage{
		Type: "error",
		Data: map[string]interface{}{
			"error": errorMsg,
		},
		Timestamp: time.Now(),
	})
}

// broadcast sends a message to every client of the given type
func (h *WebSocketHandler) broadcast(clientType string, message *WebSocketMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.Error(err))
		return
	}

	for _, clientID := range h.connections.Broadcast(clientType, messageBytes) {
		h.logger.Warn("Client send channel full during broadcast",
			zap.String("client_id", clientID),
		)
	}
}

// GetConnectionStats returns connection statistics
// @Summary WebSocket connections
// @Tags WebSocket
// @Produce json
// @Success 200 {object} ConnectionStats "Connection statistics"
// @Router /ws/stats [get]
func (h *WebSocketHandler) GetConnectionStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.connections.GetStats())
}
