package main

import (
	"pigflow.ai/internal/persistence/indexdb"
	"pigflow.ai/internal/sim/playback"
)

// startSessionRecorder writes one sessions row per successful load. The
// subscription is taken before it returns; the returned func unsubscribes
// and waits until already-delivered updates are recorded.
func startSessionRecorder(eng *playback.Engine, idx runtimeIndex) func() {
	updates, unsubscribe := eng.Subscribe(8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range updates {
			if u.Kind != playback.UpdateLoaded {
				continue
			}
			v := eng.State()
			idx.RecordSession(indexdb.SessionRow{
				SessionID:      v.SessionID,
				LoadedAt:       v.LoadedAt,
				Farms:          len(eng.FarmIDs()),
				Days:           v.Days,
				Slaughterhouse: v.Slaughterhouse,
			})
		}
	}()
	return func() {
		unsubscribe()
		<-done
	}
}
