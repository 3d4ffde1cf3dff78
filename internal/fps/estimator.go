// Package fps keeps a moving average of the display frame rate.
package fps

import (
	"errors"
	"fmt"
	"sync"
	"time"

	golog "github.com/ipfs/go-log/v2"
)

var log = golog.Logger("facetengine/fps")

// HistorySize is the number of samples averaged once the window is full
const HistorySize = 10

// ErrClockAnomaly marks a non-positive interval between two ticks
var ErrClockAnomaly = errors.New("non-positive frame interval")

// Label renders an average as shown on screen, e.g. "FPS=29.97"
func Label(v float64) string {
	return fmt.Sprintf("FPS=%.2f", v)
}

// State of the estimator
type State int

const (
	Uninitialized State = iota // no baseline timestamp yet
	Warming                    // fewer than HistorySize samples
	Steady                     // window full, averages are emitted
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Warming:
		return "warming"
	case Steady:
		return "steady"
	}
	return "unknown"
}

// Estimator averages instantaneous FPS over the last HistorySize frames
type Estimator struct {
	mu        sync.Mutex
	now       func() time.Time
	last      time.Time
	history   [HistorySize]float64
	anomalies int
}

// NewEstimator creates an estimator on the wall clock
func NewEstimator() *Estimator {
	return NewEstimatorWithClock(time.Now)
}

// NewEstimatorWithClock creates an estimator reading time from now
func NewEstimatorWithClock(now func() time.Time) *Estimator {
	return &Estimator{now: now}
}

// Tick records a completed frame. It returns the average FPS and true once
// HistorySize samples have been collected, otherwise false.
func (e *Estimator) Tick() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t1 := e.now()
	if e.last.IsZero() {
		e.last = t1
		return 0, false
	}

	elapsed := float64(t1.Sub(e.last)) / float64(time.Millisecond)
	e.last = t1

	if elapsed <= 0 {
		e.anomalies++
		log.Warnf("%v: %.3fms, sample dropped (%d so far)", ErrClockAnomaly, elapsed, e.anomalies)
	} else {
		// shift back, dropping the oldest
		copy(e.history[1:], e.history[:HistorySize-1])
		e.history[0] = 1000 / elapsed
	}

	if e.history[HistorySize-1] == 0 {
		return 0, false
	}

	var sum float64
	for _, v := range e.history {
		sum += v
	}
	return sum / HistorySize, true
}

// State reports where the estimator is in its warm-up
func (e *Estimator) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.last.IsZero():
		return Uninitialized
	case e.history[HistorySize-1] == 0:
		return Warming
	default:
		return Steady
	}
}

// Anomalies returns how many ticks were dropped for a non-positive interval
func (e *Estimator) Anomalies() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.anomalies
}
