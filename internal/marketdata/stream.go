package marketdata

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// KlineStream subscribes to exchange kline WebSocket streams and appends a bar
// to the matching Series whenever the exchange marks a candle as closed.
type KlineStream struct {
	mu         sync.Mutex
	wsBaseURL  string
	apiBaseURL string
	conn       *websocket.Conn
	series     map[string]*Series // stream name -> series
	stopChan   chan struct{}
	isRunning  bool
	logger     zerolog.Logger

	reconnectDelay time.Duration
}

// klineEvent mirrors the combined-stream kline payload.
type klineEvent struct {
	Stream string `json:"stream"`
	Data   struct {
		EventType string `json:"e"`
		Kline     struct {
			OpenTime int64  `json:"t"`
			Open     string `json:"o"`
			High     string `json:"h"`
			Low      string `json:"l"`
			Close    string `json:"c"`
			Volume   string `json:"v"`
			IsClosed bool   `json:"x"`
		} `json:"k"`
	} `json:"data"`
}

// NewKlineStream creates a stream client. Series are registered before Start.
func NewKlineStream(wsBaseURL, apiBaseURL string, logger zerolog.Logger) *KlineStream {
	return &KlineStream{
		wsBaseURL:      wsBaseURL,
		apiBaseURL:     apiBaseURL,
		series:         make(map[string]*Series),
		stopChan:       make(chan struct{}),
		logger:         logger.With().Str("component", "KlineStream").Logger(),
		reconnectDelay: 5 * time.Second,
	}
}

// Register adds a series to be driven by the stream.
func (ks *KlineStream) Register(s *Series) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	name := fmt.Sprintf("%s@kline_%s", strings.ToLower(s.Symbol()), s.Interval())
	ks.series[name] = s
}

// Backfill loads up to limit historical closed candles into each registered
// series via the REST klines endpoint, so detectors have context at startup.
func (ks *KlineStream) Backfill(limit int) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	for _, s := range ks.series {
		bars, err := ks.fetchKlines(s.Symbol(), s.Interval(), limit)
		if err != nil {
			return fmt.Errorf("backfill %s %s: %w", s.Symbol(), s.Interval(), err)
		}
		for _, b := range bars {
			s.Append(b)
		}
		ks.logger.Info().
			Str("symbol", s.Symbol()).
			Str("interval", s.Interval()).
			Int("bars", len(bars)).
			Msg("Backfilled historical candles")
	}
	return nil
}

func (ks *KlineStream) fetchKlines(symbol, interval string, limit int) ([]Bar, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d",
		ks.apiBaseURL, strings.ToUpper(symbol), interval, limit)

	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch klines: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("klines request failed with status %d", resp.StatusCode)
	}

	var raw [][]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode klines: %w", err)
	}

	bars := make([]Bar, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			continue
		}
		openTime, ok := k[0].(float64)
		if !ok {
			continue
		}
		bar := Bar{
			OpenTime: time.UnixMilli(int64(openTime)).UTC(),
			Open:     parsePrice(k[1]),
			High:     parsePrice(k[2]),
			Low:      parsePrice(k[3]),
			Close:    parsePrice(k[4]),
			Volume:   parsePrice(k[5]),
		}
		bars = append(bars, bar)
	}
	// The final kline returned by the REST endpoint is still open; drop it so
	// the series only ever holds closed bars.
	if len(bars) > 0 {
		bars = bars[:len(bars)-1]
	}
	return bars, nil
}

func parsePrice(v interface{}) float64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// Start connects and consumes kline events until Stop is called. Reconnects
// with a fixed delay on read errors.
func (ks *KlineStream) Start() error {
	ks.mu.Lock()
	if ks.isRunning {
		ks.mu.Unlock()
		return fmt.Errorf("stream already running")
	}
	if len(ks.series) == 0 {
		ks.mu.Unlock()
		return fmt.Errorf("no series registered")
	}
	ks.isRunning = true
	ks.mu.Unlock()

	go ks.run()
	return nil
}

func (ks *KlineStream) run() {
	for {
		select {
		case <-ks.stopChan:
			return
		default:
		}

		if err := ks.connectAndConsume(); err != nil {
			ks.logger.Warn().Err(err).
				Dur("retry_in", ks.reconnectDelay).
				Msg("Stream disconnected, reconnecting")
		}

		select {
		case <-ks.stopChan:
			return
		case <-time.After(ks.reconnectDelay):
		}
	}
}

func (ks *KlineStream) connectAndConsume() error {
	ks.mu.Lock()
	streams := make([]string, 0, len(ks.series))
	for name := range ks.series {
		streams = append(streams, name)
	}
	ks.mu.Unlock()

	url := fmt.Sprintf("%s/stream?streams=%s", ks.wsBaseURL, strings.Join(streams, "/"))
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to kline stream: %w", err)
	}

	ks.mu.Lock()
	ks.conn = conn
	ks.mu.Unlock()

	ks.logger.Info().Int("streams", len(streams)).Msg("Kline stream connected")

	for {
		select {
		case <-ks.stopChan:
			conn.Close()
			return nil
		default:
		}

		conn.SetReadDeadline(time.Now().Add(2 * time.Minute))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			return fmt.Errorf("read error: %w", err)
		}
		ks.handleMessage(msg)
	}
}

func (ks *KlineStream) handleMessage(msg []byte) {
	var event klineEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		ks.logger.Debug().Err(err).Msg("Ignoring unparseable stream message")
		return
	}
	if event.Data.EventType != "kline" || !event.Data.Kline.IsClosed {
		return
	}

	ks.mu.Lock()
	s, ok := ks.series[event.Stream]
	ks.mu.Unlock()
	if !ok {
		return
	}

	k := event.Data.Kline
	bar := Bar{
		OpenTime: time.UnixMilli(k.OpenTime).UTC(),
		Open:     mustParse(k.Open),
		High:     mustParse(k.High),
		Low:      mustParse(k.Low),
		Close:    mustParse(k.Close),
		Volume:   mustParse(k.Volume),
	}
	s.Append(bar)
}

func mustParse(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// Stop shuts the stream down.
func (ks *KlineStream) Stop() {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if !ks.isRunning {
		return
	}
	ks.isRunning = false
	close(ks.stopChan)
	if ks.conn != nil {
		ks.conn.Close()
	}
}
