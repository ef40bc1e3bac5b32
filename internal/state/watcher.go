package state

// Watcher receives wake signals for one state key. The channel has a buffer
// of one and sends never block: a watcher that has not drained its pending
// signal coalesces further wakes into it.
type Watcher struct {
	key string
	ch  chan struct{}
}

// C returns the signal channel.
func (w *Watcher) C() <-chan struct{} {
	return w.ch
}

// Key returns the state key this watcher observes.
func (w *Watcher) Key() string {
	return w.key
}

func (w *Watcher) notify() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}
