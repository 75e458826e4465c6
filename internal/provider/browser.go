package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
)

// actionTimeout bounds every single browser action. Bounded waits that
// need a shorter window (element lookup, success probes) pass their own
// timeout to WaitForSelector instead.
const actionTimeout = 30 * time.Second

// ChromeBrowser drives a headless Chrome session through chromedp. The
// session is created on first use and reused for every subsequent run;
// the mutex keeps concurrent callers from interleaving actions on the
// shared page.
type ChromeBrowser struct {
	mu            sync.Mutex
	headless      bool
	allocCtx      context.Context
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
}

func NewChromeBrowser(headless bool) *ChromeBrowser {
	return &ChromeBrowser{headless: headless}
}

// ensure launches the browser if no live session exists yet. Callers
// must hold b.mu.
func (b *ChromeBrowser) ensure() error {
	if b.browserCtx != nil {
		select {
		case <-b.browserCtx.Done():
			b.teardown()
		default:
			return nil
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", b.headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	b.browserCtx, b.browserCancel = chromedp.NewContext(b.allocCtx)

	return chromedp.Run(b.browserCtx)
}

func (b *ChromeBrowser) teardown() {
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.browserCtx = nil
	b.allocCtx = nil
}

// run executes chromedp actions against the shared session under the
// mutex, bounded by timeout.
func (b *ChromeBrowser) run(timeout time.Duration, actions ...chromedp.Action) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensure(); err != nil {
		return fmt.Errorf("failed to initialize browser: %w", err)
	}

	actionCtx, cancel := context.WithTimeout(b.browserCtx, timeout)
	defer cancel()

	return chromedp.Run(actionCtx, actions...)
}

func (b *ChromeBrowser) Navigate(ctx context.Context, url string) error {
	return b.run(actionTimeout, chromedp.Navigate(url))
}

// WaitForSelector accepts CSS selectors and, for probes that match on
// text content, XPath (selectors starting with "//").
func (b *ChromeBrowser) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if strings.HasPrefix(selector, "//") {
		return b.run(timeout, chromedp.WaitVisible(selector, chromedp.BySearch))
	}
	return b.run(timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (b *ChromeBrowser) Fill(ctx context.Context, selector, value string) error {
	return b.run(actionTimeout, chromedp.SetValue(selector, value, chromedp.ByQuery))
}

func (b *ChromeBrowser) Click(ctx context.Context, selector string) error {
	return b.run(actionTimeout, chromedp.Click(selector, chromedp.ByQuery))
}

func (b *ChromeBrowser) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := b.run(actionTimeout, chromedp.Location(&url))
	return url, err
}

func (b *ChromeBrowser) Title(ctx context.Context) (string, error) {
	var title string
	err := b.run(actionTimeout, chromedp.Title(&title))
	return title, err
}

func (b *ChromeBrowser) Content(ctx context.Context) (string, error) {
	var html string
	err := b.run(actionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		node, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
		return err
	}))
	return html, err
}

func (b *ChromeBrowser) FormInputs(ctx context.Context, selector string) ([]FormInput, error) {
	var nodes []*cdp.Node
	err := b.run(actionTimeout, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}

	inputs := make([]FormInput, 0, len(nodes))
	for _, n := range nodes {
		inputs = append(inputs, FormInput{
			XPath: n.FullXPath(),
			Type:  n.AttributeValue("type"),
		})
	}
	return inputs, nil
}

func (b *ChromeBrowser) FillInput(ctx context.Context, input FormInput, value string) error {
	return b.run(actionTimeout, chromedp.SendKeys(input.XPath, value, chromedp.BySearch))
}

func (b *ChromeBrowser) CheckInput(ctx context.Context, input FormInput) error {
	// Set checked directly rather than clicking, so an already-checked
	// box is not toggled off.
	expr := fmt.Sprintf(
		`(function(){var n=document.evaluate(%q,document,null,XPathResult.FIRST_ORDERED_NODE_TYPE,null).singleNodeValue;if(n){n.checked=true;}})()`,
		input.XPath)
	return b.run(actionTimeout, chromedp.Evaluate(expr, nil))
}

func (b *ChromeBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := b.run(actionTimeout, chromedp.CaptureScreenshot(&buf))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (b *ChromeBrowser) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browserCtx == nil {
		return false
	}
	select {
	case <-b.browserCtx.Done():
		return false
	default:
		return true
	}
}

func (b *ChromeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.teardown()
	return nil
}
