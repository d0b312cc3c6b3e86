package handler

import (
	"encoding/json"
	"net/http"

	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"plantia/internal/infrastructure/firebase"
	ws "plantia/internal/infrastructure/websocket"
	"plantia/internal/usecase"
	"plantia/pkg/logger"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler serves the live chat list: every connection owns one
// ChatListAggregator whose renders are pushed to the client as chat_list
// frames.
type WebSocketHandler struct {
	manager     *ws.Manager
	authClient  *firebase.FirebaseAuthClient
	aggregators *usecase.AggregatorFactory
}

func NewWebSocketHandler(manager *ws.Manager, authClient *firebase.FirebaseAuthClient, aggregators *usecase.AggregatorFactory) *WebSocketHandler {
	return &WebSocketHandler{
		manager:     manager,
		authClient:  authClient,
		aggregators: aggregators,
	}
}

type clientFrame struct {
	Type    string `json:"type"`
	Keyword string `json:"keyword,omitempty"`
}

type serverFrame struct {
	Type   string                  `json:"type"`
	State  usecase.AggregatorState `json:"state,omitempty"`
	Items  interface{}             `json:"items,omitempty"`
	Error  string                  `json:"error,omitempty"`
	ChatID string                  `json:"chat_id,omitempty"`
}

// HandleConnection upgrades the request and starts the chat list session.
// The token travels as a query parameter because browsers cannot set headers
// on WebSocket handshakes.
func (h *WebSocketHandler) HandleConnection(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Token is required")
	}

	userID, err := h.authClient.VerifyToken(c.Request().Context(), token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed for user %s: %v", userID, err)
		return err
	}

	client := &ws.Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 16),
	}

	aggregator := h.aggregators.New(userID, func(update usecase.ChatListUpdate) {
		frame := serverFrame{
			Type:  "chat_list",
			State: update.State,
			Items: update.Items,
		}
		if update.Err != nil {
			frame.Error = update.Err.Error()
		}
		payload, err := json.Marshal(frame)
		if err != nil {
			logger.Error("Failed to marshal chat list frame for %s: %v", userID, err)
			return
		}
		select {
		case client.Send <- payload:
		default:
			logger.Warn("Dropping chat list frame for slow client %s", userID)
		}
	})

	client.OnMessage = func(raw []byte) {
		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			logger.Warn("Invalid frame from client %s: %v", userID, err)
			return
		}

		switch frame.Type {
		case "search":
			aggregator.SetKeyword(frame.Keyword)
		case "ping":
			pong, _ := json.Marshal(serverFrame{Type: "pong"})
			select {
			case client.Send <- pong:
			default:
			}
		default:
			logger.Debug("Ignoring frame type %q from client %s", frame.Type, userID)
		}
	}
	client.OnClose = func() {
		aggregator.Close()
	}

	h.manager.Register <- client

	// Page lifetime bounds the subscriptions: the aggregator context lives
	// as long as the connection does.
	if err := aggregator.Start(c.Request().Context()); err != nil {
		logger.Error("Failed to start chat list for user %s: %v", userID, err)
	}

	go client.WritePump()
	client.ReadPump(h.manager)

	return nil
}
