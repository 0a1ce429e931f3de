package playback

type UpdateKind string

const (
	UpdateLoaded     UpdateKind = "load"
	UpdateLoadFailed UpdateKind = "load_failed"
	UpdateAdvanced   UpdateKind = "advance"
	UpdateFinished   UpdateKind = "finished"
)

// Update tells readers that the state changed; they re-read what they need.
type Update struct {
	Kind  UpdateKind `json:"kind"`
	Day   int        `json:"day"`
	Phase Phase      `json:"phase"`
}

// Subscribe registers a change listener. Slow listeners only see the most
// recent updates. The returned func unsubscribes and closes the channel.
func (e *Engine) Subscribe(buf int) (<-chan Update, func()) {
	if buf <= 0 {
		buf = 1
	}
	ch := make(chan Update, buf)

	e.subMu.Lock()
	e.nextSub++
	id := e.nextSub
	e.subs[id] = ch
	e.subMu.Unlock()

	cancel := func() {
		e.subMu.Lock()
		if c, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(c)
		}
		e.subMu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) notify(u Update) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		sendLatest(ch, u)
	}
}

func sendLatest(ch chan Update, u Update) {
	select {
	case ch <- u:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- u:
	default:
	}
}
