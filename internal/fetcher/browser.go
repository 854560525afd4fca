package fetcher

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// BrowserOptions configures the headless-browser fetcher.
type BrowserOptions struct {
	Headless bool
	Timeout  time.Duration // per-page, default 60s
	DelayMin time.Duration // courtesy gap between fetches, default 500ms
	DelayMax time.Duration // default 1500ms
}

// BrowserFetcher renders pages in Chrome and returns the final DOM.
// Sources whose results only exist after script execution use this
// instead of HTTPFetcher.
type BrowserFetcher struct {
	opts     BrowserOptions
	throttle *Throttle
	allocCtx context.Context
	cancel   context.CancelFunc
}

// browserAgents are real browser strings rotated per session so script
// checks see an ordinary client.
var browserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
}

func stealthOpts(headless bool, userAgent string) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(userAgent),
	}
	if headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	return opts
}

// hideAutomation patches the JS properties bot checks inspect before any
// page script runs them.
func hideAutomation() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.Evaluate(`
			Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
			Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
			Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
		`, nil).Do(ctx)
	})
}

// NewBrowserFetcher launches the Chrome allocator. Call Close to shut
// the browser down.
func NewBrowserFetcher(opts BrowserOptions) *BrowserFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.DelayMin == 0 {
		opts.DelayMin = 500 * time.Millisecond
	}
	if opts.DelayMax == 0 {
		opts.DelayMax = 1500 * time.Millisecond
	}

	ua := browserAgents[rand.IntN(len(browserAgents))]
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), stealthOpts(opts.Headless, ua)...)

	zap.L().Debug("browser allocator ready", zap.Bool("headless", opts.Headless))
	return &BrowserFetcher{
		opts:     opts,
		throttle: NewThrottle(opts.DelayMin, opts.DelayMax),
		allocCtx: allocCtx,
		cancel:   cancel,
	}
}

// Close shuts down the browser and all of its tabs.
func (b *BrowserFetcher) Close() {
	b.cancel()
}

// Fetch renders the URL in a fresh tab and returns the page HTML.
func (b *BrowserFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return b.run(ctx, rawURL, nil)
}

// FetchScrolled renders the URL, then scrolls the element matching
// selector to its bottom count times to trigger lazy loading before
// capturing the page.
func (b *BrowserFetcher) FetchScrolled(ctx context.Context, rawURL, selector string, count int) ([]byte, error) {
	js := fmt.Sprintf(`(() => { const el = document.querySelector(%q); if (el) el.scrollTo(0, el.scrollHeight); })()`, selector)
	var extra []chromedp.Action
	for range count {
		extra = append(extra,
			chromedp.Evaluate(js, nil),
			chromedp.Sleep(settleDelay()),
		)
	}
	return b.run(ctx, rawURL, extra)
}

func (b *BrowserFetcher) run(ctx context.Context, rawURL string, extra []chromedp.Action) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "parse url %q", rawURL)
	}
	if err := b.throttle.Wait(ctx, u.Host); err != nil {
		return nil, eris.Wrap(err, "throttle wait")
	}

	// Fresh tab per fetch so one stuck page cannot wedge the session.
	tabCtx, tabCancel := chromedp.NewContext(b.allocCtx)
	defer tabCancel()

	runCtx, cancel := context.WithTimeout(tabCtx, b.opts.Timeout)
	defer cancel()

	// chromedp contexts descend from the allocator, not the caller, so
	// propagate the caller's cancellation by hand.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	actions := []chromedp.Action{
		chromedp.Navigate(rawURL),
		hideAutomation(),
		chromedp.Sleep(settleDelay()),
	}
	actions = append(actions, extra...)

	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	start := time.Now()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return nil, eris.Wrapf(err, "browser fetch %s", rawURL)
	}

	zap.L().Debug("browser fetch complete",
		zap.String("url", rawURL),
		zap.Int("bytes", len(html)),
		zap.Duration("took", time.Since(start)),
	)
	return []byte(html), nil
}

// settleDelay returns a jittered pause for page scripts to finish.
func settleDelay() time.Duration {
	return 2*time.Second + time.Duration(rand.Int64N(int64(time.Second)))
}
