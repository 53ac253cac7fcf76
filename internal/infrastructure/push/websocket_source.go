package push

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"skylink/internal/core/domain"
	"skylink/pkg/retry"
)

const (
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// pushMessage is the envelope the daemon wraps every push in. Only
// video_status messages matter to the viewer; everything else is skipped
// without tearing the connection down.
type pushMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// WebSocketSource maintains a persistent push connection to the daemon and
// implements ports.StatusSource. Dropped connections are redialed with
// backoff; consumers just see a quiet channel while the link is down.
type WebSocketSource struct {
	url       string
	authToken string
	reconnect retry.Config
	logger    *zap.SugaredLogger

	updates chan domain.VideoStatus
}

// NewWebSocketSource creates the source. Run must be called to start
// consuming.
func NewWebSocketSource(url, authToken string, reconnect retry.Config, logger *zap.SugaredLogger) *WebSocketSource {
	return &WebSocketSource{
		url:       url,
		authToken: authToken,
		reconnect: reconnect,
		logger:    logger,
		updates:   make(chan domain.VideoStatus, 16),
	}
}

// Updates implements ports.StatusSource.
func (s *WebSocketSource) Updates() <-chan domain.VideoStatus {
	return s.updates
}

// Run dials the push endpoint and pumps messages until ctx is cancelled.
// The updates channel is closed on return.
func (s *WebSocketSource) Run(ctx context.Context) {
	defer close(s.updates)

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := s.dial(ctx)
		if err != nil {
			delay := retry.Delay(s.reconnect, attempt)
			attempt++
			s.logger.Warnw("push connection failed, redialing",
				"error", err,
				"delay", delay,
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		attempt = 0
		s.logger.Infow("push channel established", "url", s.url)
		s.pump(ctx, conn)
		conn.Close()
	}
}

func (s *WebSocketSource) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if s.authToken != "" {
		header.Set("Authorization", "Bearer "+s.authToken)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, s.url, header)
	if resp != nil {
		resp.Body.Close()
	}
	return conn, err
}

// pump reads push messages until the connection breaks or ctx is cancelled.
func (s *WebSocketSource) pump(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go s.keepalive(ctx, conn, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warnw("push channel lost", "error", err)
			}
			return
		}

		var msg pushMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warnw("malformed push message", "error", err)
			continue
		}
		if msg.Type != "video_status" {
			continue
		}

		var status domain.VideoStatus
		if err := json.Unmarshal(msg.Data, &status); err != nil {
			s.logger.Warnw("malformed video_status payload", "error", err)
			continue
		}

		select {
		case s.updates <- status:
		case <-ctx.Done():
			return
		default:
			// Consumer is behind; the next push supersedes this one anyway.
			s.logger.Debugw("status push dropped, consumer slow")
		}
	}
}

func (s *WebSocketSource) keepalive(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			conn.Close()
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		}
	}
}
