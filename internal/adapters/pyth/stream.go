// Package pyth subscribes to price updates from a Pyth Hermes websocket.
package pyth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alejandrodnm/roundbet/internal/domain"
	"github.com/alejandrodnm/roundbet/internal/ports"
)

// DefaultURL is the public Hermes websocket endpoint.
const DefaultURL = "wss://hermes.pyth.network/ws"

// Config holds connection settings.
type Config struct {
	URL          string
	WriteTimeout time.Duration
	PingTimeout  time.Duration // connection is dropped when no frame arrives for this long
	BufferSize   int
}

// DefaultConfig returns settings for the public endpoint.
func DefaultConfig() Config {
	return Config{
		URL:          DefaultURL,
		WriteTimeout: 5 * time.Second,
		PingTimeout:  60 * time.Second,
		BufferSize:   64,
	}
}

// Stream implementa ports.PriceStream. Every subscription gets its own
// connection.
type Stream struct {
	cfg    Config
	logger *slog.Logger
}

// NewStream creates a Stream.
func NewStream(cfg Config, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	return &Stream{cfg: cfg, logger: logger}
}

type request struct {
	Type string   `json:"type"`
	IDs  []string `json:"ids"`
}

type message struct {
	Type      string     `json:"type"`
	Status    string     `json:"status"`
	Error     string     `json:"error"`
	PriceFeed *priceFeed `json:"price_feed"`
}

type priceFeed struct {
	ID    string `json:"id"`
	Price struct {
		Price       string `json:"price"`
		Conf        string `json:"conf"`
		Expo        int32  `json:"expo"`
		PublishTime int64  `json:"publish_time"`
	} `json:"price"`
}

// SubscribePrice implements ports.PriceStream.
func (s *Stream) SubscribePrice(ctx context.Context, feedID string) (ports.PriceSubscription, error) {
	feedID = normalizeID(feedID)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return nil, &domain.TransportError{Op: "pyth.SubscribePrice: dial " + s.cfg.URL, Err: err}
	}

	sub := &subscription{
		cfg:    s.cfg,
		logger: s.logger,
		conn:   conn,
		feedID: feedID,
		ticks:  make(chan domain.PriceTick, s.cfg.BufferSize),
		done:   make(chan struct{}),
	}
	if err := sub.send(request{Type: "subscribe", IDs: []string{feedID}}); err != nil {
		conn.Close()
		return nil, &domain.TransportError{Op: "pyth.SubscribePrice: subscribe", Err: err}
	}

	conn.SetReadDeadline(time.Now().Add(s.cfg.PingTimeout))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.PingTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	go sub.readLoop()
	s.logger.Debug("pyth: subscribed", "feed", feedID, "url", s.cfg.URL)
	return sub, nil
}

type subscription struct {
	cfg    Config
	logger *slog.Logger
	conn   *websocket.Conn
	feedID string

	ticks chan domain.PriceTick
	done  chan struct{}

	writeMu sync.Mutex
	mu      sync.Mutex
	closed  bool
}

func (s *subscription) Ticks() <-chan domain.PriceTick { return s.ticks }

// Close sends an unsubscribe and closes the connection.
func (s *subscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	if err := s.send(request{Type: "unsubscribe", IDs: []string{s.feedID}}); err != nil {
		s.logger.Debug("pyth: unsubscribe failed", "err", err)
	}
	s.writeMu.Lock()
	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	s.writeMu.Unlock()
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("pyth: close: %w", err)
	}
	return nil
}

func (s *subscription) send(req request) error {
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, b)
}

// readLoop decodes price updates until the connection ends. Ticks are dropped
// when the consumer falls behind.
func (s *subscription) readLoop() {
	defer close(s.ticks)

	for {
		_, data, err := s.conn.ReadMessage()
		receivedAt := time.Now()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Warn("pyth: connection lost", "err", err)
			}
			return
		}
		s.conn.SetReadDeadline(receivedAt.Add(s.cfg.PingTimeout))

		tick, ok, err := decode(data, receivedAt)
		if err != nil {
			s.logger.Warn("pyth: bad message", "err", err)
			continue
		}
		if !ok || tick.FeedID != s.feedID {
			continue
		}

		select {
		case s.ticks <- tick:
		case <-s.done:
			return
		default:
			s.logger.Debug("pyth: tick buffer full, dropping tick")
		}
	}
}

// decode returns ok=false for messages that carry no price.
func decode(data []byte, receivedAt time.Time) (domain.PriceTick, bool, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.PriceTick{}, false, fmt.Errorf("decode: %w", err)
	}
	switch msg.Type {
	case "response":
		if msg.Status == "error" {
			return domain.PriceTick{}, false, errors.New("hermes: " + msg.Error)
		}
		return domain.PriceTick{}, false, nil
	case "price_update":
	default:
		return domain.PriceTick{}, false, nil
	}
	if msg.PriceFeed == nil {
		return domain.PriceTick{}, false, errors.New("price_update without price_feed")
	}

	raw, err := strconv.ParseInt(msg.PriceFeed.Price.Price, 10, 64)
	if err != nil {
		return domain.PriceTick{}, false, fmt.Errorf("price %q: %w", msg.PriceFeed.Price.Price, err)
	}
	return domain.PriceTick{
		FeedID:      normalizeID(msg.PriceFeed.ID),
		Raw:         raw,
		Expo:        msg.PriceFeed.Price.Expo,
		PublishTime: time.Unix(msg.PriceFeed.Price.PublishTime, 0).UTC(),
		ReceivedAt:  receivedAt,
	}, true, nil
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimPrefix(id, "0x"))
}
