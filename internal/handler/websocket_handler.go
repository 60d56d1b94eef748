// internal/handler/websocket_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"terminal-bridge/internal/config"
	"terminal-bridge/internal/model"
	"terminal-bridge/internal/service"
	"terminal-bridge/internal/utils"
)

const (
	messageTypePing = "ping"
	messageTypePong = "pong"

	readLimit    = 1 << 20
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// WebSocketHandler serves the method channel: host calls come in, replies
// and relayed events go out
type WebSocketHandler struct {
	upgrader       websocket.Upgrader
	connections    *ConnectionManager
	bridge         CommandDispatcher
	logger         *utils.ServiceLogger
	securityLogger *utils.SecurityLogger
	inflight       sync.WaitGroup
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	connections *ConnectionManager,
	bridge CommandDispatcher,
	security *config.SecurityConfig,
	logger *zap.Logger,
) *WebSocketHandler {
	h := &WebSocketHandler{
		connections:    connections,
		bridge:         bridge,
		logger:         utils.NewServiceLogger(logger, "websocket-handler"),
		securityLogger: utils.NewSecurityLogger(logger),
	}

	allowed := security.AllowedOrigins
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if utils.OriginAllowed(allowed, origin) {
				return true
			}
			h.securityLogger.LogRejectedOrigin(origin, r.RemoteAddr, r.UserAgent())
			return false
		},
	}

	return h
}

// HandleChannel upgrades the request and serves the method channel
// @Summary Method channel
// @Description WebSocket carrying call/result/error/event envelopes
// @Tags Channel
// @Success 101 "Switching protocols"
// @Failure 403 "Origin not allowed"
// @Router /ws/channel [get]
func (h *WebSocketHandler) HandleChannel(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := newClient(uuid.New().String(), conn, c.Request.UserAgent(), c.ClientIP())
	h.connections.Register(client)
	h.logger.Info("Channel client connected",
		zap.String("client_id", client.ID),
		zap.String("remote_addr", client.RemoteAddr),
	)

	go h.handleClientWrite(client)
	go h.handleClientRead(client)
}

// handleClientRead reads calls until the connection fails
func (h *WebSocketHandler) handleClientRead(client *Client) {
	defer func() {
		h.connections.Unregister(client)
		client.Connection.Close()
		h.logger.Info("Channel client disconnected", zap.String("client_id", client.ID))
	}()

	client.Connection.SetReadLimit(readLimit)
	client.Connection.SetReadDeadline(time.Now().Add(pongWait))
	client.Connection.SetPongHandler(func(string) error {
		client.Connection.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, messageBytes, err := client.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
			}
			return
		}
		client.Connection.SetReadDeadline(time.Now().Add(pongWait))

		var message model.ChannelMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			h.logger.Warn("Failed to parse channel message",
				zap.Error(err),
				zap.String("client_id", client.ID),
			)
			h.sendError(client, &model.ChannelMessage{}, service.NewInvalidRequestError("Malformed channel message"))
			continue
		}

		h.handleClientMessage(client, &message)
	}
}

// handleClientWrite drains the send channel and keeps the connection alive
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(pingInterval)
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
				h.logger.Warn("WebSocket write error",
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

// handleClientMessage routes one inbound envelope
func (h *WebSocketHandler) handleClientMessage(client *Client, message *model.ChannelMessage) {
	switch message.Type {
	case model.MessageTypeCall, "":
		if message.Method == "" {
			h.sendError(client, message, service.NewInvalidRequestError("`method` is required"))
			return
		}
		// each call runs on its own goroutine so a long collection does not
		// block the stop command that cancels it
		h.inflight.Add(1)
		go func() {
			defer h.inflight.Done()
			h.executeCall(client, message)
		}()
	case messageTypePing:
		h.sendMessage(client, &model.ChannelMessage{
			ID:        message.ID,
			Type:      messageTypePong,
			Timestamp: time.Now(),
		})
	default:
		h.logger.Warn("Unknown message type",
			zap.String("type", message.Type),
			zap.String("client_id", client.ID),
		)
		h.sendError(client, message, service.NewInvalidRequestError("Unknown message type "+message.Type))
	}
}

// executeCall dispatches a call and sends exactly one reply
func (h *WebSocketHandler) executeCall(client *Client, message *model.ChannelMessage) {
	result, err := h.bridge.Dispatch(client.ctx, model.CommandSourceChannel, message.Method, message.Arguments)
	if err != nil {
		h.sendError(client, message, err)
		return
	}

	h.sendMessage(client, &model.ChannelMessage{
		ID:        message.ID,
		Type:      model.MessageTypeResult,
		Method:    message.Method,
		Result:    result,
		Timestamp: time.Now(),
	})
}

// sendMessage sends a message to a client
func (h *WebSocketHandler) sendMessage(client *Client, message *model.ChannelMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal channel message",
			zap.String("method", message.Method),
			zap.Error(err),
		)
		return
	}

	if !client.enqueue(messageBytes) {
		h.logger.Warn("Client unavailable, dropping message",
			zap.String("client_id", client.ID),
			zap.String("method", message.Method),
			zap.String("type", message.Type),
		)
	}
}

// sendError replies to request with a structured error
func (h *WebSocketHandler) sendError(client *Client, request *model.ChannelMessage, err error) {
	terminalErr := service.AsTerminalError(err, service.CodeInvalidRequest)
	h.sendMessage(client, &model.ChannelMessage{
		ID:        request.ID,
		Type:      model.MessageTypeError,
		Method:    request.Method,
		Error:     terminalErr.ChannelError(),
		Timestamp: time.Now(),
	})
}

// Shutdown closes every channel client and waits for in-flight calls
func (h *WebSocketHandler) Shutdown() {
	h.connections.CloseAll()
	h.inflight.Wait()
}
