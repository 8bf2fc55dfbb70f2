package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RetagProcessorConfig holds configuration for the retag processor
type RetagProcessorConfig struct {
	// Interval between two full tagging passes (default: 15m)
	Interval time.Duration

	// Timeout bounds a single pass (default: 2m)
	Timeout time.Duration
}

// DefaultRetagProcessorConfig returns sensible defaults
func DefaultRetagProcessorConfig() RetagProcessorConfig {
	return RetagProcessorConfig{
		Interval: 15 * time.Minute,
		Timeout:  2 * time.Minute,
	}
}

// RetagProcessor runs the tagger on a fixed interval. It catches activities
// whose import event never reached the worker.
type RetagProcessor struct {
	tagger *Tagger
	config RetagProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	passes  int
}

func NewRetagProcessor(tagger *Tagger, config RetagProcessorConfig) *RetagProcessor {
	def := DefaultRetagProcessorConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	return &RetagProcessor{tagger: tagger, config: config}
}

// Start begins the processing loop. Returns an error if already running.
func (p *RetagProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("retag processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Retag processor started", "interval", p.config.Interval)
	return nil
}

// Stop signals the loop and waits for the running pass to finish.
func (p *RetagProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Retag processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Retag processor stop timed out")
		return ctx.Err()
	}
}

func (p *RetagProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Passes returns how many tagging passes completed, failed ones included.
func (p *RetagProcessor) Passes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.passes
}

func (p *RetagProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.pass(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pass(ctx)
		}
	}
}

func (p *RetagProcessor) pass(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	if _, err := p.tagger.Tag(ctx); err != nil {
		slog.ErrorContext(ctx, "Periodic tagging failed", "error", err)
	}

	p.mu.Lock()
	p.passes++
	p.mu.Unlock()
}
