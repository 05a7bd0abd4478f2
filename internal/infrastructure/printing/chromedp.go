// Package printing renders payment receipts to PDF through headless
// Chrome.
package printing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const defaultRenderTimeout = 30 * time.Second

// Paper is a page size in millimetres. A zero height means continuous
// thermal roll.
type Paper struct {
	WidthMM  float64
	HeightMM float64
	MarginMM float64
}

// PaperReceipt80 is an 80mm thermal receipt roll
var PaperReceipt80 = Paper{WidthMM: 80, MarginMM: 3}

// continuousHeightMM stands in for an endless roll
const continuousHeightMM = 3000

// ChromeConfig configures the renderer
type ChromeConfig struct {
	// RemoteURL connects to a running Chrome (ws://host:9222) instead of
	// launching one
	RemoteURL string
	NoSandbox bool
	Timeout   time.Duration
}

// ChromeRenderer turns HTML documents into PDF
type ChromeRenderer struct {
	config      ChromeConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromeRenderer prepares the browser allocator. Chrome is started
// lazily on the first render.
func NewChromeRenderer(config ChromeConfig, logger *zap.Logger) *ChromeRenderer {
	if config.Timeout <= 0 {
		config.Timeout = defaultRenderTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &ChromeRenderer{config: config, logger: logger}

	if config.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), config.RemoteURL)
		return r
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if config.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return r
}

// RenderPDF prints html on paper
func (r *ChromeRenderer) RenderPDF(ctx context.Context, html string, paper Paper) ([]byte, error) {
	if strings.TrimSpace(html) == "" {
		return nil, errors.New("printing: empty document")
	}
	started := time.Now()

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()
	// chromedp binds the tab to allocCtx; stop it when the request ends
	tabCtx, tabCancel := chromedp.NewContext(r.allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		r.logger.Debug(fmt.Sprintf(format, args...))
	}))
	defer tabCancel()
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	params := printParams(paper)
	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := params.Do(ctx)
			pdf = data
			return err
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("printing: render timed out after %v: %w", r.config.Timeout, err)
		}
		return nil, fmt.Errorf("printing: render: %w", err)
	}
	if len(pdf) == 0 {
		return nil, errors.New("printing: chrome returned an empty PDF")
	}

	r.logger.Debug("PDF rendered", zap.Int("bytes", len(pdf)), zap.Duration("duration", time.Since(started)))
	return pdf, nil
}

func printParams(paper Paper) *page.PrintToPDFParams {
	height := paper.HeightMM
	if height == 0 {
		height = continuousHeightMM
	}
	margin := mmToInches(paper.MarginMM)
	return page.PrintToPDF().
		WithPrintBackground(true).
		WithPaperWidth(mmToInches(paper.WidthMM)).
		WithPaperHeight(mmToInches(height)).
		WithMarginTop(margin).
		WithMarginBottom(margin).
		WithMarginLeft(margin).
		WithMarginRight(margin).
		WithPreferCSSPageSize(false)
}

// Close shuts the browser down
func (r *ChromeRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

func mmToInches(mm float64) float64 {
	return mm / 25.4
}
