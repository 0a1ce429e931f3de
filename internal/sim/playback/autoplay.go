package playback

import (
	"context"
	"errors"
	"time"
)

// Run advances one day per interval until playback finishes or ctx is done.
// It waits while no dataset is loaded and shares the advance guard with
// manual Advance calls, so a concurrent manual advance just costs one tick.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			switch e.Phase() {
			case PhaseFinished:
				return nil
			case PhaseNotStarted:
				continue
			}
			res, err := e.Advance()
			if errors.Is(err, ErrAdvanceInProgress) {
				continue
			}
			if err != nil {
				return err
			}
			if res.Finished {
				return nil
			}
		}
	}
}
