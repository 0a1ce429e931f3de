package main

import (
	"strings"
	"testing"

	"pigflow.ai/internal/sim/playback"
)

func TestFormatDay(t *testing.T) {
	rec := playback.DayRecord{
		SessionID: "0123456789abcdef",
		Day:       4,
		Cursor:    3,
		Summary:   playback.DaySummary{Trucks: 2, PigsProcessed: 80, Net: 120.5},
		Finished:  true,
	}
	got := formatDay(rec)
	want := "01234567 day=4 cursor=3 trucks=2 pigs=80 net=120.50 finished"
	if got != want {
		t.Fatalf("formatDay=%q want %q", got, want)
	}
	if strings.Contains(formatDay(playback.DayRecord{SessionID: "abc"}), "finished") {
		t.Fatalf("unfinished day should not say finished")
	}
}
