package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"livechat-backend/internal/api/middleware"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

// The realtime sockets are served behind the same writer chain as every
// other route: the metrics recorder wraps the mux, and the logging
// recorder wraps that. The upgrade only works if hijacking passes
// through both recorders.
func TestUpgradeThroughInstrumentedServer(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	echo := func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("server-side upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.WriteMessage(mt, msg)
	}

	corsConfig := middleware.CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/guest", middleware.Chain(echo,
		middleware.CORS(corsConfig),
		middleware.Logging(),
	))

	m := newMetrics(prometheus.NewRegistry(), ":0", nil)
	server := httptest.NewServer(m.instrument(mux))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/guest"
	conn, res, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("client dial failed: %v", err)
	}
	defer conn.Close()

	if res.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected status 101, got %d", res.StatusCode)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
		t.Fatalf("write after upgrade failed: %v", err)
	}
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read after upgrade failed: %v", err)
	}
	if string(msg) != "ping" {
		t.Errorf("expected the frame echoed back, got %q", msg)
	}
}
