package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	logrus "github.com/sirupsen/logrus"
)

// wire message kinds sent by the tracking endpoint.
const (
	msgKindSubscribed = "subscribed"
	msgKindLocation   = "location"
	msgKindError      = "error"
)

type wireMessage struct {
	Kind          string           `json:"kind"`
	PickupStatus  string           `json:"pickup_status,omitempty"`
	DropoffStatus string           `json:"dropoff_status,omitempty"`
	Location      *TrackedLocation `json:"location,omitempty"`
	Error         string           `json:"error,omitempty"`
}

// WebSocketSource is the live PushSource over the tracking websocket
// endpoint. One subscription dials one connection; unsubscribing closes it
// and ends the read loop.
type WebSocketSource struct {
	// BaseURL is the ws:// or wss:// endpoint without the token query.
	BaseURL string
	Dialer  *websocket.Dialer
}

func NewWebSocketSource(baseURL string) *WebSocketSource {
	return &WebSocketSource{BaseURL: baseURL, Dialer: websocket.DefaultDialer}
}

// Subscribe dials the tracking endpoint with the token and pumps messages to
// the handlers from a single goroutine. The returned function closes the
// connection; the read loop then exits without invoking further handlers.
func (s *WebSocketSource) Subscribe(ctx context.Context, token string, h Handlers) (func(), error) {
	url := fmt.Sprintf("%s?token=%s", s.BaseURL, token)
	conn, _, err := s.Dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing tracking channel: %w", err)
	}

	var once sync.Once
	done := make(chan struct{})
	unsubscribe := func() {
		once.Do(func() {
			close(done)
			conn.Close()
		})
	}

	go func() {
		defer conn.Close()
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-done:
					// Deliberate unsubscribe, not a channel failure.
				default:
					if h.OnError != nil {
						h.OnError(err)
					}
				}
				return
			}

			var msg wireMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				logrus.WithError(err).WithField("payload", string(payload)).
					Warn("Unparseable tracking message, skipping.")
				continue
			}

			switch msg.Kind {
			case msgKindSubscribed:
				if h.OnSubscribed != nil {
					h.OnSubscribed(SubscribeAck{
						PickupStatus:  msg.PickupStatus,
						DropoffStatus: msg.DropoffStatus,
					})
				}
			case msgKindLocation:
				if msg.Location != nil && h.OnSample != nil {
					h.OnSample(*msg.Location)
				}
			case msgKindError:
				if h.OnError != nil {
					h.OnError(fmt.Errorf("tracking channel: %s", msg.Error))
				}
				return
			default:
				logrus.WithField("kind", msg.Kind).Debug("Unknown tracking message kind, ignoring.")
			}
		}
	}()

	return unsubscribe, nil
}
