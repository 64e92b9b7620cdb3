package cryptocom

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// cacheMaxAge bounds how old a streamed price may be before readers fall
// back to REST.
const cacheMaxAge = 10 * time.Second

type cachedPrice struct {
	price float64
	at    time.Time
}

// TickerStream maintains a websocket subscription to the public ticker
// channels and caches the latest price per instrument. It reconnects
// with exponential backoff until its context is canceled.
type TickerStream struct {
	url string
	log *zap.Logger

	mu          sync.RWMutex
	instruments map[string]bool
	prices      map[string]cachedPrice
	conn        *websocket.Conn

	// writeMu serializes writes on the connection; gorilla/websocket
	// supports at most one concurrent writer.
	writeMu sync.Mutex

	now func() time.Time
}

// NewTickerStream creates a stream for the given websocket endpoint.
func NewTickerStream(url string, log *zap.Logger) *TickerStream {
	if log == nil {
		log = zap.NewNop()
	}
	return &TickerStream{
		url:         url,
		log:         log.Named("ticker-stream"),
		instruments: make(map[string]bool),
		prices:      make(map[string]cachedPrice),
		now:         time.Now,
	}
}

// Subscribe adds an instrument to the watched channels. Safe to call
// before and after Start; subscriptions survive reconnects.
func (s *TickerStream) Subscribe(instrument string) {
	s.mu.Lock()
	already := s.instruments[instrument]
	s.instruments[instrument] = true
	conn := s.conn
	s.mu.Unlock()
	if already || conn == nil {
		return
	}
	if err := s.sendSubscribe(conn, []string{instrument}); err != nil {
		s.log.Warn("subscribe failed", zap.String("instrument", instrument), zap.Error(err))
	}
}

// Price returns the cached price for an instrument, reporting false when
// the cache is empty or older than cacheMaxAge.
func (s *TickerStream) Price(instrument string) (float64, bool) {
	s.mu.RLock()
	entry, ok := s.prices[instrument]
	s.mu.RUnlock()
	if !ok || s.now().Sub(entry.at) > cacheMaxAge {
		return 0, false
	}
	return entry.price, true
}

// Start runs the connect/read loop until ctx is done. It returns after
// the connection is shut down.
func (s *TickerStream) Start(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		err := s.runConn(ctx)
		if ctx.Err() != nil {
			return
		}
		s.log.Warn("stream disconnected, reconnecting", zap.Duration("backoff", backoff), zap.Error(err))
		if err := sleepCtx(ctx, backoff); err != nil {
			return
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (s *TickerStream) runConn(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.mu.Lock()
	s.conn = conn
	subs := make([]string, 0, len(s.instruments))
	for inst := range s.instruments {
		subs = append(subs, inst)
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}()

	if len(subs) > 0 {
		if err := s.sendSubscribe(conn, subs); err != nil {
			return err
		}
	}
	s.log.Info("ticker stream connected", zap.Int("subscriptions", len(subs)))

	// Close the connection when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.handleMessage(conn, message)
	}
}

type wsMessage struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Result struct {
		Channel        string       `json:"channel"`
		InstrumentName string       `json:"instrument_name"`
		Data           []TickerData `json:"data"`
	} `json:"result"`
}

func (s *TickerStream) handleMessage(conn *websocket.Conn, message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		s.log.Debug("unparseable stream message", zap.ByteString("message", message))
		return
	}
	switch msg.Method {
	case "public/heartbeat":
		reply := map[string]interface{}{"id": msg.ID, "method": "public/respond-heartbeat"}
		if err := s.writeJSON(conn, reply); err != nil {
			s.log.Warn("heartbeat reply failed", zap.Error(err))
		}
	case "subscribe":
		if msg.Result.Channel != "ticker" || len(msg.Result.Data) == 0 {
			return
		}
		instrument := msg.Result.InstrumentName
		last := msg.Result.Data[len(msg.Result.Data)-1].Last.Float()
		if instrument == "" || last <= 0 {
			return
		}
		s.mu.Lock()
		s.prices[instrument] = cachedPrice{price: last, at: s.now()}
		s.mu.Unlock()
	}
}

func (s *TickerStream) sendSubscribe(conn *websocket.Conn, instruments []string) error {
	channels := make([]string, len(instruments))
	for i, inst := range instruments {
		channels[i] = "ticker." + inst
	}
	return s.writeJSON(conn, map[string]interface{}{
		"id":     time.Now().UnixMilli(),
		"method": "subscribe",
		"params": map[string]interface{}{"channels": channels},
		"nonce":  time.Now().UnixMilli(),
	})
}

func (s *TickerStream) writeJSON(conn *websocket.Conn, v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(v)
}
