package main

import (
	"fmt"
	"io"
	"net/http"

	"pigflow.ai/internal/sim/playback"
)

type metricsSource interface {
	State() playback.View
	Routes() []playback.Route
}

// Minimal Prometheus exposition format.
func writeMetrics(rw http.ResponseWriter, eng metricsSource, idx runtimeIndex) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
	writeMetricsTo(rw, eng, idx)
}

func writeMetricsTo(w io.Writer, eng metricsSource, idx runtimeIndex) {
	v := eng.State()

	fmt.Fprintf(w, "# HELP pigflow_playback_day Current playback day index.\n")
	fmt.Fprintf(w, "# TYPE pigflow_playback_day gauge\n")
	fmt.Fprintf(w, "pigflow_playback_day %d\n", v.Day)

	fmt.Fprintf(w, "# HELP pigflow_playback_days Number of days in the loaded sequence.\n")
	fmt.Fprintf(w, "# TYPE pigflow_playback_days gauge\n")
	fmt.Fprintf(w, "pigflow_playback_days %d\n", v.Days)

	fmt.Fprintf(w, "# HELP pigflow_playback_phase Current phase (1 for the active one).\n")
	fmt.Fprintf(w, "# TYPE pigflow_playback_phase gauge\n")
	for _, p := range []playback.Phase{playback.PhaseNotStarted, playback.PhaseRunning, playback.PhaseFinished} {
		on := 0
		if v.Phase == p {
			on = 1
		}
		fmt.Fprintf(w, "pigflow_playback_phase{phase=%q} %d\n", p.String(), on)
	}

	fmt.Fprintf(w, "# HELP pigflow_routes_today Routes drawn for the current day.\n")
	fmt.Fprintf(w, "# TYPE pigflow_routes_today gauge\n")
	fmt.Fprintf(w, "pigflow_routes_today %d\n", len(eng.Routes()))

	fmt.Fprintf(w, "# HELP pigflow_totals Running financial totals.\n")
	fmt.Fprintf(w, "# TYPE pigflow_totals gauge\n")
	fmt.Fprintf(w, "pigflow_totals{metric=%q} %.2f\n", "revenue", v.Totals.Revenue)
	fmt.Fprintf(w, "pigflow_totals{metric=%q} %.2f\n", "cost", v.Totals.Cost)
	fmt.Fprintf(w, "pigflow_totals{metric=%q} %.2f\n", "penalties", v.Totals.Penalties)
	fmt.Fprintf(w, "pigflow_totals{metric=%q} %.2f\n", "net_profit", v.Totals.NetProfit)

	fmt.Fprintf(w, "# HELP pigflow_pigs_processed_total Pigs processed since load.\n")
	fmt.Fprintf(w, "# TYPE pigflow_pigs_processed_total counter\n")
	fmt.Fprintf(w, "pigflow_pigs_processed_total %d\n", v.Totals.PigsProcessed)

	if idx == nil {
		return
	}
	s := idx.Stats()
	fmt.Fprintf(w, "# HELP pigflow_index_queue_depth Current index queue depth.\n")
	fmt.Fprintf(w, "# TYPE pigflow_index_queue_depth gauge\n")
	fmt.Fprintf(w, "pigflow_index_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(w, "# HELP pigflow_index_dropped_total Index writes dropped because the queue was full.\n")
	fmt.Fprintf(w, "# TYPE pigflow_index_dropped_total counter\n")
	fmt.Fprintf(w, "pigflow_index_dropped_total{kind=%q} %d\n", "day", s.DropDayTotal)
	fmt.Fprintf(w, "pigflow_index_dropped_total{kind=%q} %d\n", "session", s.DropSessionTotal)
}
