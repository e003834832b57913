package rendering

import (
	"context"
	"log"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// DefaultRenderTimeout bounds a single Chrome print.
const DefaultRenderTimeout = 60 * time.Second

// Engine converts an HTML document to PDF bytes.
type Engine interface {
	RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error)
}

// ChromeEngine prints HTML through headless Chrome.
type ChromeEngine struct {
	ExecPath string
	Timeout  time.Duration
}

// NewChromeEngine creates a Chrome engine. An empty execPath falls back to
// CHROME_PATH and then to chromedp's own browser discovery.
func NewChromeEngine(execPath string) *ChromeEngine {
	if execPath == "" {
		execPath = os.Getenv("CHROME_PATH")
	}
	return &ChromeEngine{ExecPath: execPath, Timeout: DefaultRenderTimeout}
}

var chromeNames = []string{
	"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome", "headless-shell",
}

// Available reports whether a Chrome binary can be located.
func (e *ChromeEngine) Available() bool {
	if e.ExecPath != "" {
		_, err := os.Stat(e.ExecPath)
		return err == nil
	}
	for _, name := range chromeNames {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

// RenderHTMLToPDF loads html into a blank tab and prints it to A4.
func (e *ChromeEngine) RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if e.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(e.ExecPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	cctx, cancelCtx := chromedp.NewContext(allocCtx)
	defer cancelCtx()

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	runCtx, cancelRun := context.WithTimeout(cctx, timeout)
	defer cancelRun()

	start := time.Now()
	var pdf []byte
	err := chromedp.Run(runCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			// A4: 210mm x 297mm -> inches: 8.27 x 11.69
			pdf, _, err = page.PrintToPDF().
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, &RenderError{Message: "chrome print failed", Cause: err}
	}
	log.Printf("[render] printed %d bytes in %v", len(pdf), time.Since(start))
	return pdf, nil
}
