package checker

import (
	"context"

	"github.com/hazyhaar/steamcheck/checker/internal/browser"
)

// ProcessURL opens pageURL in the browser and processes it as a live page.
// The browser is started on first use and shut down by Close. Closing the
// Session closes its tab.
func (c *Checker) ProcessURL(ctx context.Context, pageURL string) (*Session, error) {
	mgr, err := c.browserManager(ctx)
	if err != nil {
		return nil, err
	}

	tab, err := browser.OpenTab(ctx, mgr, pageURL)
	if err != nil {
		return nil, err
	}

	sess, err := c.Process(ctx, tab)
	if err != nil {
		tab.Close()
		return nil, err
	}
	sess.onClose = append(sess.onClose, tab.Close)
	return sess, nil
}

func (c *Checker) browserManager(ctx context.Context) (*browser.Manager, error) {
	c.browserMu.Lock()
	defer c.browserMu.Unlock()

	if c.browser != nil {
		return c.browser, nil
	}
	bcfg := c.cfg.Browser
	bcfg.Logger = c.logger
	mgr := browser.NewManager(bcfg)
	if err := mgr.Start(ctx); err != nil {
		return nil, err
	}
	c.browser = mgr
	c.closers = append(c.closers, mgr.Close)
	return mgr, nil
}
