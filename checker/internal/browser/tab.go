package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/steamcheck/checker/internal/highlight"
	"github.com/hazyhaar/steamcheck/checker/internal/schedule"
)

//go:embed observe.js
var observeJS string

//go:embed apply.js
var applyJS string

const bindingName = "__steamcheck_binding"

// Tab is one live page. It satisfies the checker's Page interface.
type Tab struct {
	Page    *rod.Page
	PageURL string

	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	events chan string

	mu   sync.Mutex
	subs map[string]func(schedule.Mutation)
	seq  atomic.Uint64
	path string
}

// OpenTab creates a tab, navigates to pageURL and installs the mutation
// binding.
func OpenTab(ctx context.Context, mgr *Manager, pageURL string) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	log := mgr.cfg.Logger

	var page *rod.Page
	var err error
	if mgr.cfg.NoStealth {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	} else {
		page, err = stealth.Page(b)
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		if err := applyResourceBlocking(page, mgr.cfg.ResourceBlocking); err != nil {
			log.Warn("browser: resource blocking failed", "error", err)
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, mgr.cfg.NavTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		log.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	tabCtx, tabCancel := context.WithCancel(ctx)
	t := &Tab{
		Page:    page,
		PageURL: pageURL,
		logger:  log,
		ctx:     tabCtx,
		cancel:  tabCancel,
		events:  make(chan string, 256),
		subs:    make(map[string]func(schedule.Mutation)),
	}

	res, err := page.Context(navCtx).Eval(`() => location.pathname`)
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("browser: read path: %w", err)
	}
	t.path = res.Value.Str()

	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(page); err != nil {
		log.Warn("browser: addBinding failed (may already exist)", "error", err)
	}
	wait := page.Context(tabCtx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		select {
		case t.events <- e.Payload:
		default:
			log.Warn("browser: mutation event dropped", "url", pageURL)
		}
	})
	go wait()
	go t.dispatch()

	return t, nil
}

// Path is the page path used for selector matching.
func (t *Tab) Path() string { return t.path }

// Document snapshots the live DOM into a parsed document.
func (t *Tab) Document(ctx context.Context) (*goquery.Document, error) {
	res, err := t.Page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("browser: get DOM: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.Value.Str()))
	if err != nil {
		return nil, fmt.Errorf("browser: parse DOM: %w", err)
	}
	return doc, nil
}

// Exists reports whether selector matches an element of the live page.
func (t *Tab) Exists(ctx context.Context, selector string) (bool, error) {
	res, err := t.Page.Context(ctx).Eval(`(sel) => document.querySelector(sel) !== null`, selector)
	if err != nil {
		return false, fmt.Errorf("browser: query %s: %w", selector, err)
	}
	return res.Value.Bool(), nil
}

// Observe installs a MutationObserver on selector (the document when
// empty) and forwards its child-list mutations to fn.
func (t *Tab) Observe(ctx context.Context, selector string, fn func(schedule.Mutation)) (func(), error) {
	id := strconv.FormatUint(t.seq.Add(1), 10)

	t.mu.Lock()
	t.subs[id] = fn
	t.mu.Unlock()

	res, err := t.Page.Context(ctx).Eval(observeJS, id, selector, bindingName)
	if err == nil && !res.Value.Bool() {
		err = fmt.Errorf("no element")
	}
	if err != nil {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
		return nil, fmt.Errorf("browser: observe %q: %w", selector, err)
	}

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
		_, err := t.Page.Context(t.ctx).Eval(`(id) => {
			const o = (window.__steamcheck_observers || {})[id];
			if (o) { o.disconnect(); delete window.__steamcheck_observers[id]; }
		}`, id)
		if err != nil {
			t.logger.Debug("browser: disconnect observer", "id", id, "error", err)
		}
	}, nil
}

// Apply marks the live page. Wrappers are located by XPath.
func (t *Tab) Apply(ctx context.Context, marks []highlight.Mark, star string) (int, error) {
	if len(marks) == 0 {
		return 0, nil
	}
	res, err := t.Page.Context(ctx).Eval(applyJS, marks, star, highlight.StarClass)
	if err != nil {
		return 0, fmt.Errorf("browser: apply marks: %w", err)
	}
	return res.Value.Int(), nil
}

// Close stops event delivery and closes the tab.
func (t *Tab) Close() error {
	t.cancel()
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}

// dispatch delivers binding payloads to subscribers outside the CDP event
// goroutine, so subscribers may call back into the page.
func (t *Tab) dispatch() {
	for {
		select {
		case <-t.ctx.Done():
			return
		case payload := <-t.events:
			id, names, err := decodeEvent(payload)
			if err != nil {
				t.logger.Warn("browser: parse binding payload", "error", err)
				continue
			}
			t.mu.Lock()
			fn := t.subs[id]
			t.mu.Unlock()
			if fn == nil {
				continue
			}
			for _, n := range names {
				fn(schedule.Mutation{TargetName: n})
			}
		}
	}
}

func decodeEvent(payload string) (id string, names []string, err error) {
	var ev struct {
		ID    string   `json:"id"`
		Names []string `json:"names"`
	}
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return "", nil, err
	}
	if ev.ID == "" {
		return "", nil, fmt.Errorf("missing id")
	}
	return ev.ID, ev.Names, nil
}
