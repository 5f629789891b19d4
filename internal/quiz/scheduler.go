package quiz

import (
	"sync"
	"time"
)

// Scheduler runs fn every interval until the returned stop func is called.
// Engines receive one so the countdown can be driven by hand in tests.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (stop func())
}

// TickerScheduler schedules callbacks on a time.Ticker goroutine
type TickerScheduler struct{}

// Every starts a ticker goroutine. stop may be called from inside fn. A callback
// that was already under way when stop is called still runs to completion.
func (TickerScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				fn()
			case <-done:
				return
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}
