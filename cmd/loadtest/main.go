// Load generator for the Pulse server. Spawns N WebSocket clients that pair
// off and exchange direct messages, measuring ack latency and live delivery.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aeolun/pulse/pkg/protocol"
)

const loremIpsum = "Lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod tempor incididunt ut labore et dolore magna aliqua"

var loremWords = strings.Fields(loremIpsum)

// Stats tracks performance metrics across all bot clients.
type Stats struct {
	messagesSent     atomic.Int64
	acksReceived     atomic.Int64
	liveDeliveries   atomic.Int64
	sendFailures     atomic.Int64
	connectionErrors atomic.Int64
	totalAckLatency  atomic.Int64 // microseconds
}

func (s *Stats) snapshot() (sent, acked, delivered, failed, connErrors int64, avgAckUs float64) {
	sent = s.messagesSent.Load()
	acked = s.acksReceived.Load()
	delivered = s.liveDeliveries.Load()
	failed = s.sendFailures.Load()
	connErrors = s.connectionErrors.Load()
	if acked > 0 {
		avgAckUs = float64(s.totalAckLatency.Load()) / float64(acked)
	}
	return
}

// BotClient is one simulated user holding a live connection.
type BotClient struct {
	userID  string
	partner string
	conn    *websocket.Conn
	stats   *Stats

	mu      sync.Mutex
	pending map[string]time.Time // message text -> send time, matched on ack
}

func dialBot(serverURL, userID, partner string, stats *Stats) (*BotClient, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	u.Path = "/ws"
	u.RawQuery = url.Values{"user_id": {userID}}.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}

	return &BotClient{
		userID:  userID,
		partner: partner,
		conn:    conn,
		stats:   stats,
		pending: make(map[string]time.Time),
	}, nil
}

// readLoop consumes server events, recording ack latency and live deliveries.
func (b *BotClient) readLoop(done <-chan struct{}) {
	for {
		_, raw, err := b.conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
			default:
				b.stats.connectionErrors.Add(1)
			}
			return
		}

		env, err := protocol.Decode(raw)
		if err != nil {
			continue
		}

		switch env.Event {
		case protocol.EventMessageSentAck:
			var msg protocol.Message
			if env.Bind(&msg) != nil {
				continue
			}
			b.mu.Lock()
			sentAt, ok := b.pending[msg.Text]
			if ok {
				delete(b.pending, msg.Text)
			}
			b.mu.Unlock()
			if ok {
				b.stats.acksReceived.Add(1)
				b.stats.totalAckLatency.Add(time.Since(sentAt).Microseconds())
			}
		case protocol.EventMessageReceived:
			b.stats.liveDeliveries.Add(1)
		}
	}
}

// sendLoop fires direct messages at the partner until told to stop.
func (b *BotClient) sendLoop(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			text := fmt.Sprintf("%s %d", loremWords[rand.Intn(len(loremWords))], rand.Int63())

			b.mu.Lock()
			b.pending[text] = time.Now()
			b.mu.Unlock()

			frame, err := protocol.Encode(protocol.EventSendMessage, protocol.SendMessagePayload{
				To:   b.partner,
				Text: text,
			})
			if err != nil {
				b.stats.sendFailures.Add(1)
				continue
			}

			b.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := b.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				b.stats.sendFailures.Add(1)
				return
			}
			b.stats.messagesSent.Add(1)
		}
	}
}

func main() {
	serverURL := flag.String("server", "ws://localhost:3001", "Server URL")
	clients := flag.Int("clients", 50, "Number of concurrent clients (rounded up to even)")
	interval := flag.Duration("interval", time.Second, "Interval between messages per client")
	duration := flag.Duration("duration", 30*time.Second, "Test duration (0 = until interrupted)")
	flag.Parse()

	n := *clients
	if n%2 != 0 {
		n++
	}

	stats := &Stats{}
	done := make(chan struct{})
	var wg sync.WaitGroup

	log.Printf("Connecting %d clients to %s", n, *serverURL)

	bots := make([]*BotClient, 0, n)
	for i := 0; i < n; i++ {
		// Clients pair off: 0<->1, 2<->3, ...
		userID := fmt.Sprintf("bot-%04d", i)
		partner := fmt.Sprintf("bot-%04d", i^1)

		bot, err := dialBot(*serverURL, userID, partner, stats)
		if err != nil {
			log.Printf("Failed to connect %s: %v", userID, err)
			stats.connectionErrors.Add(1)
			continue
		}
		bots = append(bots, bot)

		wg.Add(2)
		go func(b *BotClient) {
			defer wg.Done()
			b.readLoop(done)
		}(bot)
		go func(b *BotClient) {
			defer wg.Done()
			b.sendLoop(done, *interval)
		}(bot)
	}

	log.Printf("%d clients connected, running load", len(bots))

	// Periodic progress report.
	reportTicker := time.NewTicker(5 * time.Second)
	defer reportTicker.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var timeout <-chan time.Time
	if *duration > 0 {
		timeout = time.After(*duration)
	}

loop:
	for {
		select {
		case <-reportTicker.C:
			sent, acked, delivered, failed, connErrors, avgAckUs := stats.snapshot()
			log.Printf("sent=%d acked=%d delivered=%d failed=%d conn_errors=%d avg_ack=%.1fms",
				sent, acked, delivered, failed, connErrors, avgAckUs/1000)
		case <-sigChan:
			break loop
		case <-timeout:
			break loop
		}
	}

	close(done)
	for _, bot := range bots {
		bot.conn.Close()
	}
	wg.Wait()

	sent, acked, delivered, failed, connErrors, avgAckUs := stats.snapshot()
	report := map[string]any{
		"messages_sent":     sent,
		"acks_received":     acked,
		"live_deliveries":   delivered,
		"send_failures":     failed,
		"connection_errors": connErrors,
		"avg_ack_ms":        avgAckUs / 1000,
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
}
