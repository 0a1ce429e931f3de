package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"pigflow.ai/internal/observerproto"
	"pigflow.ai/internal/protocol"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/observe", "observer ws url")
		farms    = flag.Bool("farms", false, "request farm inventories in every frame")
		maxLogs  = flag.Int("logs", 5, "narration entries per frame")
		showLogs = flag.Bool("print_logs", true, "print the newest narration entry of each frame")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := observerproto.SubscribeMsg{
		Type:            observerproto.TypeSubscribe,
		ProtocolVersion: observerproto.Version,
		IncludeFarms:    *farms,
		MaxLogs:         *maxLogs,
	}
	if err := conn.WriteJSON(sub); err != nil {
		logger.Fatalf("send SUBSCRIBE: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		if base.Type != observerproto.TypeState {
			continue
		}
		var st observerproto.StateMsg
		if err := json.Unmarshal(msg, &st); err != nil {
			continue
		}
		handleState(logger, &st, *showLogs)
	}
}

func handleState(logger *log.Logger, st *observerproto.StateMsg, showLogs bool) {
	logger.Printf("%-10s day=%d/%d phase=%s routes=%d pigs=%d net=%.2f",
		kindLabel(st), st.Day, st.Days, st.Phase, len(st.Routes), st.Totals.PigsProcessed, st.Totals.NetProfit)
	if showLogs && len(st.Logs) > 0 {
		l := st.Logs[0]
		logger.Printf("  %s %s", l.Icon, l.Text)
	}
}

func kindLabel(st *observerproto.StateMsg) string {
	if st.Kind == "" {
		return "snapshot"
	}
	return string(st.Kind)
}
