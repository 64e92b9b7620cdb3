package cryptocom

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickerServer is a minimal exchange stream: it pushes one ticker update
// on connect, then heartbeats, and counts what the client sends back.
type tickerServer struct {
	upgrader websocket.Upgrader

	subscribes int64
	hbReplies  int64
}

func (ts *tickerServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := ts.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	go func() {
		for {
			var msg struct {
				Method string `json:"method"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			switch msg.Method {
			case "subscribe":
				atomic.AddInt64(&ts.subscribes, 1)
			case "public/respond-heartbeat":
				atomic.AddInt64(&ts.hbReplies, 1)
			}
		}
	}()

	ticker := `{"method":"subscribe","result":{"channel":"ticker","instrument_name":"BTC_USDT","data":[{"i":"BTC_USDT","a":50000}]}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ticker)); err != nil {
		return
	}
	for id := int64(1); ; id++ {
		hb := fmt.Sprintf(`{"id":%d,"method":"public/heartbeat"}`, id)
		if err := conn.WriteMessage(websocket.TextMessage, []byte(hb)); err != nil {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestTickerStream_ConcurrentSubscribesDuringHeartbeats(t *testing.T) {
	ts := &tickerServer{}
	srv := httptest.NewServer(http.HandlerFunc(ts.handle))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithCancel(context.Background())
	stream := NewTickerStream(wsURL, nil)
	started := make(chan struct{})
	go func() {
		defer close(started)
		stream.Start(ctx)
	}()

	require.Eventually(t, func() bool {
		_, ok := stream.Price("BTC_USDT")
		return ok
	}, 2*time.Second, 10*time.Millisecond, "stream never delivered the ticker update")

	// Hammer Subscribe from many goroutines while the read loop is busy
	// answering heartbeats on the same connection.
	const workers, perWorker = 8, 5
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				stream.Subscribe(fmt.Sprintf("INST%d_%d_USDT", w, i))
			}
		}(w)
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&ts.subscribes) == workers*perWorker
	}, 2*time.Second, 10*time.Millisecond, "every subscribe frame must arrive intact")
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&ts.hbReplies) >= 3
	}, 2*time.Second, 10*time.Millisecond, "heartbeat replies must keep flowing")

	cancel()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after cancellation")
	}
}

func TestTickerStream_PriceCacheExpires(t *testing.T) {
	stream := NewTickerStream("ws://unused.invalid", nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stream.now = func() time.Time { return now }

	stream.prices["BTC_USDT"] = cachedPrice{price: 50000, at: now}

	price, ok := stream.Price("BTC_USDT")
	require.True(t, ok)
	assert.Equal(t, 50000.0, price)

	now = now.Add(cacheMaxAge + time.Second)
	_, ok = stream.Price("BTC_USDT")
	assert.False(t, ok, "a stale cache entry must not be served")

	_, ok = stream.Price("ETH_USDT")
	assert.False(t, ok)
}
