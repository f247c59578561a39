package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

// BarObserver renders each activity as a terminal progress bar.
type BarObserver struct {
	out      io.Writer
	throttle time.Duration
	mu       sync.Mutex
	bars     map[string]*progressbar.ProgressBar
}

// NewBarObserver creates an observer that draws bars on out.
func NewBarObserver(out io.Writer) *BarObserver {
	return &BarObserver{
		out:      out,
		throttle: 100 * time.Millisecond,
		bars:     make(map[string]*progressbar.ProgressBar),
	}
}

// Notify implements Observer.
func (o *BarObserver) Notify(event EventType, a Activity) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event {
	case EventTypeStarted:
		o.bars[a.ID] = o.newBar(a)
	case EventTypeUpdate:
		if bar, ok := o.bars[a.ID]; ok {
			_ = bar.Set64(a.Current)
		}
	case EventTypeCompleted:
		if bar, ok := o.bars[a.ID]; ok {
			_ = bar.Finish()
			fmt.Fprintf(o.out, " done in %s\n", a.Elapsed().Round(time.Millisecond))
			delete(o.bars, a.ID)
		}
	case EventTypeError:
		if _, ok := o.bars[a.ID]; ok {
			fmt.Fprintln(o.out)
			delete(o.bars, a.ID)
		}
	}
}

func (o *BarObserver) newBar(a Activity) *progressbar.ProgressBar {
	total := a.Total
	if total <= 0 {
		total = -1 // spinner
	}

	// Known totals render "current/total" plus [elapsed:remaining].
	opts := []progressbar.Option{
		progressbar.OptionSetWriter(o.out),
		progressbar.OptionSetDescription(a.Title),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(o.throttle),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionShowCount(),
	}
	if a.Type == ActivityTypeDownload {
		opts = append(opts, progressbar.OptionShowBytes(true))
	}

	return progressbar.NewOptions64(total, opts...)
}

// LogObserver reports activities as log lines, at most one progress line
// per interval. It is used when no terminal is attached.
type LogObserver struct {
	logger   zerolog.Logger
	interval time.Duration

	mu      sync.Mutex
	lastLog map[string]time.Time
}

// NewLogObserver creates an observer that logs progress every interval.
func NewLogObserver(logger zerolog.Logger, interval time.Duration) *LogObserver {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &LogObserver{
		logger:   logger,
		interval: interval,
		lastLog:  make(map[string]time.Time),
	}
}

// Notify implements Observer.
func (o *LogObserver) Notify(event EventType, a Activity) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event {
	case EventTypeStarted:
		o.lastLog[a.ID] = time.Now()
		o.logger.Info().
			Str("type", string(a.Type)).
			Int64("total", a.Total).
			Msg(a.Title)
	case EventTypeUpdate:
		if time.Since(o.lastLog[a.ID]) <= o.interval {
			return
		}
		o.lastLog[a.ID] = time.Now()
		o.logger.Info().
			Str("type", string(a.Type)).
			Int64("current", a.Current).
			Int64("total", a.Total).
			Float64("percentComplete", a.Percent()).
			Msg(a.Title)
	case EventTypeCompleted:
		delete(o.lastLog, a.ID)
		o.logger.Info().
			Str("type", string(a.Type)).
			Int64("current", a.Current).
			Dur("elapsed", a.Elapsed()).
			Msg(a.Title + " complete")
	case EventTypeError:
		delete(o.lastLog, a.ID)
		o.logger.Error().
			Str("type", string(a.Type)).
			Int64("current", a.Current).
			Str("error", a.Error).
			Msg(a.Title + " failed")
	}
}
