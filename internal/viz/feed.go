package viz

import (
	"sync"

	"gonum.org/v1/gonum/mat"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/dimreduce/internal/schedule"
)

// ProgressMsg is sent every few iterations while a run is going.
type ProgressMsg struct {
	Iter     int
	Total    int
	Phase    string
	Rate     float64
	MaxForce float64
	Scaler   float64
	// Points holds coord1 and coord2 per row (0.5 when there is only one
	// coordinate), as of the start of iteration Iter.
	Points [][2]float64
}

// DoneMsg ends a run.
type DoneMsg struct {
	Result *schedule.Result
	Err    error
}

// Feed forwards controller progress to a Model. Progress messages are
// dropped rather than blocking the simulation when the UI falls behind.
type Feed struct {
	ch     chan tea.Msg
	every  int
	total  int
	points [][2]float64

	stop     chan struct{}
	stopOnce sync.Once
}

func NewFeed(every, total int) *Feed {
	return &Feed{
		ch:    make(chan tea.Msg, 64),
		every: max(every, 1),
		total: total,
		stop:  make(chan struct{}),
	}
}

// Messages is the receiving end for NewModel.
func (f *Feed) Messages() <-chan tea.Msg { return f.ch }

// Observer captures the scatter on every reporting iteration.
func (f *Feed) Observer() schedule.Observer {
	return schedule.ObserverFunc(func(iter int, coords mat.Matrix) error {
		if iter%f.every != 0 {
			return nil
		}
		n, d := coords.Dims()
		pts := make([][2]float64, n)
		for i := range pts {
			pts[i] = [2]float64{coords.At(i, 0), 0.5}
			if d > 1 {
				pts[i][1] = coords.At(i, 1)
			}
		}
		f.points = pts
		return nil
	})
}

func (f *Feed) Name() string { return "live_updates" }

func (f *Feed) Observe(rec schedule.Record) {
	if rec.Iter%f.every != 0 && rec.Iter != f.total-1 {
		return
	}
	msg := ProgressMsg{
		Iter:     rec.Iter,
		Total:    f.total,
		Phase:    rec.Phase.String(),
		Rate:     rec.Params.Rate,
		MaxForce: rec.Stats.MaxForce,
		Scaler:   rec.Stats.MovementScaler,
		Points:   f.points,
	}
	select {
	case f.ch <- msg:
	default:
	}
}

func (f *Feed) Value() float64 { return float64(len(f.ch)) }

func (f *Feed) Reset() {}

// Finish delivers the final message. It blocks until the UI takes it or
// Stop is called.
func (f *Feed) Finish(res *schedule.Result, err error) {
	select {
	case f.ch <- DoneMsg{Result: res, Err: err}:
	case <-f.stop:
	}
}

// Stop releases a pending Finish once the UI has gone away.
func (f *Feed) Stop() {
	f.stopOnce.Do(func() { close(f.stop) })
}
