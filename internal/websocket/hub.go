package websocket

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/stemwave/api/internal/apperr"
	"github.com/stemwave/api/internal/model"
)

// StateSubscriber opens a state feed for one signal.
type StateSubscriber interface {
	Subscribe(ctx context.Context, owner, signalID string) (<-chan model.SignalState, error)
}

// Hub bridges signal state feeds onto WebSocket connections. Each
// connection holds its own subscription; the feed closes after a terminal
// state, and so does the connection.
type Hub struct {
	states StateSubscriber
}

// NewHub creates a new Hub over a state subscriber.
func NewHub(states StateSubscriber) *Hub {
	return &Hub{states: states}
}

// HandleConnection serves one WebSocket connection for one signal.
func (h *Hub) HandleConnection(c *websocket.Conn, owner, signalID string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed, err := h.states.Subscribe(ctx, owner, signalID)
	if err != nil {
		code := "SERVICE_ERROR"
		if apperr.Is(err, apperr.KindNotFound) {
			code = "NOT_FOUND"
		}
		h.writeError(c, signalID, code, err.Error())
		return
	}

	send := make(chan []byte, 16)

	// Writer goroutine
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				// Send ping for keep-alive
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Forward state transitions until the feed closes
	go func() {
		defer close(send)
		for state := range feed {
			msg := model.WSStateMessage{
				Type:     model.WSMessageTypeState,
				SignalID: signalID,
				State:    state,
			}
			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("Failed to marshal state message: %v", err)
				continue
			}
			select {
			case send <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == model.WSMessageTypePing {
			pong := model.WSMessage{Type: model.WSMessageTypePong}
			data, _ := json.Marshal(pong)
			select {
			case send <- data:
			default:
			}
		}
	}
}

func (h *Hub) writeError(c *websocket.Conn, signalID, code, message string) {
	msg := model.WSErrorMessage{
		Type:     model.WSMessageTypeError,
		SignalID: signalID,
		Error: model.WSError{
			Code:    code,
			Message: message,
		},
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal error message: %v", err)
		return
	}
	c.WriteMessage(websocket.TextMessage, data)
}
