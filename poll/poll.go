// Package poll runs one component's periodic tick on its own goroutine.
package poll

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// Tick is one unit of work. Errors and panics are logged and never leave the poller.
type Tick func(ctx context.Context) error

// Poller is a cooperative fixed-interval timer. Stop prevents future ticks but does
// not interrupt one in progress.
type Poller struct {
	name     string
	interval time.Duration
	tick     Tick
	log      *logger.Logger

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	run    uint64 // bumped by every Start; a loop only clears running for its own run
	ticks  atomic.Uint64
	fails  atomic.Uint64
}

func New(name string, interval time.Duration, tick Tick) *Poller {
	return &Poller{
		name:     name,
		interval: interval,
		tick:     tick,
		log:      logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "poll-"+name)),
	}
}

// Start launches the goroutine. It returns false if the poller is already running.
func (p *Poller) Start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.run++
	p.running.Store(true)

	go p.loop(ctx, p.run)

	p.log.Debugln("Started with interval", p.interval)
	return true
}

// Stop clears the liveness flag and cancels the loop.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running.Swap(false) {
		return
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.log.Debugln("Stopped after", p.ticks.Load(), "ticks")
}

func (p *Poller) IsRunning() bool {
	return p.running.Load()
}

// Ticks returns how many ticks ran and how many of them failed.
func (p *Poller) Ticks() (total, failed uint64) {
	return p.ticks.Load(), p.fails.Load()
}

func (p *Poller) loop(ctx context.Context, run uint64) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.exit(run)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.running.Load() {
				return
			}
			p.RunOnce(ctx)
		}
	}
}

// exit clears the liveness flag when the loop ends on its own, e.g. because the
// parent context was cancelled.
func (p *Poller) exit(run uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.run != run {
		return
	}
	if p.running.Swap(false) {
		p.log.Debugln("Loop ended, context done")
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// RunOnce executes a single tick with panic and error containment.
func (p *Poller) RunOnce(ctx context.Context) (err error) {
	p.ticks.Add(1)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s tick panicked: %v", p.name, r)
			p.log.Warn(err, "\n", string(debug.Stack()))
		}
		if err != nil {
			p.fails.Add(1)
		}
	}()

	if err = p.tick(ctx); err != nil {
		p.log.Debugln("Tick failed:", err)
	}
	return err
}
