package checker

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/steamcheck/checker/internal/extract"
	"github.com/hazyhaar/steamcheck/checker/internal/highlight"
	"github.com/hazyhaar/steamcheck/checker/internal/schedule"
	"github.com/hazyhaar/steamcheck/checker/internal/selectors"
	"github.com/hazyhaar/steamcheck/checker/internal/title"
)

// Report summarizes a session.
type Report struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Pattern string `json:"pattern,omitempty"`
	Inert   bool   `json:"inert"`
	Reason  string `json:"reason,omitempty"`
	// Owned and Wished are the sizes of the resolved name sets.
	Owned  int `json:"owned"`
	Wished int `json:"wished"`
	Scans  int `json:"scans"`
	Marked int `json:"marked"`
	// Candidates are the entries of the latest scan of each profile.
	Candidates []CandidateReport `json:"candidates"`
}

// CandidateReport is one scanned entry and its match state.
type CandidateReport struct {
	Name      string `json:"name"`
	Raw       string `json:"raw"`
	ClassType string `json:"class_type"`
	XPath     string `json:"xpath"`
	Owned     bool   `json:"owned"`
	Wished    bool   `json:"wished"`
}

// Session is one processed page. Observed profiles keep rescanning until
// Close.
type Session struct {
	ID string

	c      *Checker
	page   Page
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	owned, wished *title.Set
	profiles      []selectors.Profile
	scheds        []*schedule.Scheduler

	// mu serializes scans and guards the report.
	mu     sync.Mutex
	report Report
	latest map[int][]CandidateReport
	closed bool

	onClose []func() error
}

func newSession(ctx context.Context, c *Checker, page Page) *Session {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	sctx, cancel := context.WithCancel(ctx)
	return &Session{
		ID:     id.String(),
		c:      c,
		page:   page,
		logger: c.logger.With("session", id.String()),
		ctx:    sctx,
		cancel: cancel,
		report: Report{ID: id.String(), Path: page.Path()},
		latest: make(map[int][]CandidateReport),
	}
}

func (s *Session) inert(reason string) *Session {
	s.report.Inert = true
	s.report.Reason = reason
	s.cancel()
	return s
}

// start scans static profiles once and subscribes observed ones.
func (s *Session) start(profiles []selectors.Profile) {
	s.profiles = profiles
	live, isLive := s.page.(LivePage)

	var once, observed []int
	for i, p := range profiles {
		if p.Observed() && isLive {
			observed = append(observed, i)
		} else {
			once = append(once, i)
		}
	}
	s.scan(once...)

	cfg := schedule.Config{
		Window:     s.c.cfg.Observer.Debounce,
		Decorative: s.c.cfg.Observer.Decorative,
	}
	for _, i := range observed {
		sch := schedule.New(live, profiles[i].Observer, func() { s.scan(i) }, cfg, s.logger)
		if err := sch.Start(s.ctx); err != nil {
			s.logger.Warn("checker: observer not started",
				"observer", profiles[i].Observer, "error", err)
			continue
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			sch.Disconnect()
			return
		}
		s.scheds = append(s.scheds, sch)
		s.mu.Unlock()
	}
}

// scan extracts and marks the given profiles. Each profile's candidate
// list replaces the previous one.
func (s *Session) scan(idx ...int) {
	if len(idx) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	start := time.Now()
	doc, err := s.page.Document(s.ctx)
	if err != nil {
		s.logger.Warn("checker: read page", "error", err)
		return
	}

	var marks []highlight.Mark
	for _, i := range idx {
		cands := extract.Extract(doc, s.profiles[i:i+1], s.logger)
		pm := highlight.Match(cands, s.owned, s.wished, s.c.cfg.classPrefix())
		marks = append(marks, pm...)

		reports := make([]CandidateReport, len(cands))
		for j, c := range cands {
			reports[j] = CandidateReport{
				Name:      c.Name,
				Raw:       c.Raw,
				ClassType: c.Profile.ClassType,
				XPath:     c.XPath,
				Owned:     s.owned.Has(c.Name),
				Wished:    s.wished.Has(c.Name),
			}
		}
		s.latest[i] = reports
	}

	n, err := s.page.Apply(s.ctx, marks, s.c.star)
	if err != nil {
		s.logger.Warn("checker: apply marks", "error", err)
	}
	s.report.Scans++
	s.report.Marked += n
	s.logger.Info("checker: games highlighted",
		"matched", len(marks), "applied", n, "elapsed", time.Since(start))
}

// Report returns a snapshot of the session state.
func (s *Session) Report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.report
	idx := make([]int, 0, len(s.latest))
	for i := range s.latest {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	r.Candidates = []CandidateReport{}
	for _, i := range idx {
		r.Candidates = append(r.Candidates, s.latest[i]...)
	}
	return r
}

// Close stops every observer of the session and releases its page.
func (s *Session) Close() {
	s.mu.Lock()
	scheds, onClose := s.scheds, s.onClose
	s.scheds, s.onClose = nil, nil
	s.closed = true
	s.mu.Unlock()

	for _, sch := range scheds {
		sch.Disconnect()
	}
	s.cancel()
	for _, fn := range onClose {
		if err := fn(); err != nil {
			s.logger.Debug("checker: close page", "error", err)
		}
	}
}
