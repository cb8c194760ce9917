// Package schedule re-runs a scan when a lazily loading container changes.
//
// A Scheduler watches one observer target. Qualifying child-list mutations
// rearm a trailing debounce timer; the recompute runs once the target has
// been quiet for the debounce window.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Mutation is one child-list change reported by a Target.
type Mutation struct {
	// TargetName is the node name of the mutated node ("ul", "i", ...).
	TargetName string
}

// Target is a page that can be queried and observed.
type Target interface {
	// Exists reports whether selector matches an element.
	Exists(ctx context.Context, selector string) (bool, error)
	// Observe subscribes fn to child-list mutations in the subtree of the
	// first element matching selector, or of the whole document when
	// selector is empty. The returned func unsubscribes.
	Observe(ctx context.Context, selector string, fn func(Mutation)) (func(), error)
}

// Config controls debouncing.
type Config struct {
	// Window is the trailing debounce. Default: 100ms.
	Window time.Duration
	// Decorative lists node names whose mutations never trigger a
	// recompute. Default: ["i"].
	Decorative []string
}

func (c *Config) defaults() {
	if c.Window <= 0 {
		c.Window = 100 * time.Millisecond
	}
	if c.Decorative == nil {
		c.Decorative = []string{"i"}
	}
}

// Scheduler observes one target selector and debounces recomputes.
type Scheduler struct {
	target    Target
	selector  string
	recompute func()
	cfg       Config
	logger    *slog.Logger

	mu         sync.Mutex
	ctx        context.Context
	timer      *time.Timer
	gen        uint64
	unsub      func()
	onDocument bool
	closed     bool
}

// New creates a Scheduler that calls recompute for changes under selector.
func New(target Target, selector string, recompute func(), cfg Config, logger *slog.Logger) *Scheduler {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		target:    target,
		selector:  selector,
		recompute: recompute,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start begins observation. If the target already exists a recompute is
// scheduled and its subtree observed; otherwise the whole document is
// observed until the target appears.
func (s *Scheduler) Start(ctx context.Context) error {
	exists, err := s.target.Exists(ctx, s.selector)
	if err != nil {
		return fmt.Errorf("schedule: %s: %w", s.selector, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.ctx = ctx

	if exists {
		return s.observeTargetLocked()
	}

	unsub, err := s.target.Observe(ctx, "", s.onDocumentMutation)
	if err != nil {
		return fmt.Errorf("schedule: observe document: %w", err)
	}
	s.unsub = unsub
	s.onDocument = true
	s.logger.Debug("schedule: waiting for target", "selector", s.selector)
	return nil
}

// Disconnect releases every subscription and cancels a pending recompute.
// It is safe to call more than once.
func (s *Scheduler) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
}

// observeTargetLocked swaps any subscription for one on the target and
// schedules a recompute. s.mu must be held.
func (s *Scheduler) observeTargetLocked() error {
	unsub, err := s.target.Observe(s.ctx, s.selector, s.onTargetMutation)
	if err != nil {
		return fmt.Errorf("schedule: observe %s: %w", s.selector, err)
	}
	if s.unsub != nil {
		s.unsub()
	}
	s.unsub = unsub
	s.onDocument = false
	s.scheduleLocked()
	s.logger.Debug("schedule: observing target", "selector", s.selector)
	return nil
}

func (s *Scheduler) onDocumentMutation(Mutation) {
	s.mu.Lock()
	ctx, waiting := s.ctx, s.onDocument && !s.closed
	s.mu.Unlock()
	if !waiting {
		return
	}

	exists, err := s.target.Exists(ctx, s.selector)
	if err != nil || !exists {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.onDocument || s.closed {
		return
	}
	if err := s.observeTargetLocked(); err != nil {
		s.logger.Warn("schedule: switch to target", "error", err)
	}
}

func (s *Scheduler) onTargetMutation(m Mutation) {
	if s.decorative(m.TargetName) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.scheduleLocked()
}

// scheduleLocked cancels the pending timer and arms a new one.
func (s *Scheduler) scheduleLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(s.cfg.Window, func() { s.fire(gen) })
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	stale := gen != s.gen || s.closed
	if !stale {
		s.timer = nil
	}
	s.mu.Unlock()
	if stale {
		return
	}
	s.recompute()
}

func (s *Scheduler) decorative(name string) bool {
	for _, d := range s.cfg.Decorative {
		if strings.EqualFold(d, name) {
			return true
		}
	}
	return false
}
