// Package page drives a Chrome tab over the DevTools protocol. It implements
// interaction.Page on top of a small script injected into every document.
package page

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/geom"
	"github.com/ayusman/mudra/internal/interaction"
	"github.com/ayusman/mudra/internal/overlay"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrBridgeMissing is returned when the current document has no bridge,
// usually because a navigation is in flight.
var ErrBridgeMissing = errors.New("page bridge is not installed")

// Page is a browser tab with the bridge installed.
type Page struct {
	cfg    Config
	logger *zap.Logger

	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	closeOnce   sync.Once
}

var _ interaction.Page = (*Page)(nil)

type reply struct {
	Missing bool                `json:"missing"`
	Error   string              `json:"error"`
	Value   jsoniter.RawMessage `json:"value"`
}

// Launch starts Chrome, installs the bridge and opens cfg.URL. The browser
// lives until Close is called or ctx is cancelled.
func Launch(ctx context.Context, cfg Config, logger *zap.Logger) (*Page, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("page")

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions(cfg)...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Debugf),
	)

	p := &Page{
		cfg:         cfg,
		logger:      logger,
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}

	// The first Run starts the browser and must not carry a deadline, or the
	// browser dies with it.
	if err := chromedp.Run(tabCtx); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	navCtx, cancel := context.WithTimeout(tabCtx, cfg.NavigationTimeout)
	defer cancel()
	err := chromedp.Run(navCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := cdppage.AddScriptToEvaluateOnNewDocument(bridgeJS).Do(ctx)
			return err
		}),
		chromedp.Navigate(cfg.URL),
		chromedp.Evaluate(bridgeJS, nil),
	)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to open %s: %w", cfg.URL, err)
	}

	logger.Info("Browser ready", zap.String("url", cfg.URL), zap.Bool("headless", cfg.Headless))
	return p, nil
}

func allocatorOptions(cfg Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	// Chrome refuses to run as root with the sandbox on.
	if runtime.GOOS == "linux" && os.Geteuid() == 0 {
		opts = append(opts, chromedp.NoSandbox)
	}
	for _, arg := range cfg.Args {
		key, value, found := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if found {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			opts = append(opts, chromedp.Flag(key, true))
		}
	}
	return opts
}

// Done is closed when the tab or browser goes away.
func (p *Page) Done() <-chan struct{} {
	return p.ctx.Done()
}

// Close shuts the browser down. It is safe to call more than once.
func (p *Page) Close() error {
	var err error
	p.closeOnce.Do(func() {
		if p.ctx.Err() == nil {
			err = chromedp.Cancel(p.ctx)
			if errors.Is(err, context.Canceled) {
				err = nil
			}
		}
		p.cancelTab()
		p.cancelAlloc()
	})
	return err
}

// Viewport returns the layout viewport size in CSS pixels.
func (p *Page) Viewport(ctx context.Context) (geom.Size, error) {
	var v struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := p.call(ctx, "viewport", &v); err != nil {
		return geom.Size{}, err
	}
	return geom.Size{Width: v.Width, Height: v.Height}, nil
}

// HitTest implements interaction.Page.
func (p *Page) HitTest(ctx context.Context, pt geom.Point) (interaction.Hit, error) {
	var hit interaction.Hit
	err := p.call(ctx, "hitTest", &hit, pt.X, pt.Y)
	return hit, err
}

// Exists implements interaction.Page.
func (p *Page) Exists(ctx context.Context, h interaction.Handle) (bool, error) {
	if h == interaction.NoElement {
		return false, nil
	}
	var ok bool
	err := p.call(ctx, "exists", &ok, h)
	return ok, err
}

// Dispatch implements interaction.Page.
func (p *Page) Dispatch(ctx context.Context, ev interaction.Event) error {
	var delivered bool
	if err := p.call(ctx, "dispatch", &delivered, ev); err != nil {
		return err
	}
	if !delivered {
		return interaction.ErrDetached
	}
	return nil
}

// SetPointerCapture implements interaction.Page.
func (p *Page) SetPointerCapture(ctx context.Context, h interaction.Handle, pointerID int) error {
	return p.element(ctx, "capture", h, pointerID)
}

// ReleasePointerCapture implements interaction.Page.
func (p *Page) ReleasePointerCapture(ctx context.Context, h interaction.Handle, pointerID int) error {
	return p.element(ctx, "release", h, pointerID)
}

// Draw moves the in-page cursor. It implements overlay.Sink.
func (p *Page) Draw(ctx context.Context, f overlay.Frame) error {
	if !p.cfg.ShowCursor {
		return nil
	}
	c := struct {
		X       float64 `json:"x"`
		Y       float64 `json:"y"`
		Gesture string  `json:"gesture"`
		Visible bool    `json:"visible"`
	}{f.X, f.Y, f.Gesture, f.HandPresent}
	return p.call(ctx, "cursor", nil, c)
}

func (p *Page) element(ctx context.Context, method string, h interaction.Handle, pointerID int) error {
	var ok bool
	if err := p.call(ctx, method, &ok, h, pointerID); err != nil {
		return err
	}
	if !ok {
		return interaction.ErrDetached
	}
	return nil
}

// call runs one bridge method in the tab. It gives up after CallTimeout or
// when ctx is done, whichever comes first.
func (p *Page) call(ctx context.Context, method string, out any, args ...any) error {
	encoded := make([][]byte, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("page %s: encode argument %d: %w", method, i, err)
		}
		encoded[i] = b
	}

	callCtx, cancel := context.WithTimeout(p.ctx, p.cfg.CallTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var raw []byte
	if err := chromedp.Run(callCtx, chromedp.Evaluate(expression(method, encoded...), &raw)); err != nil {
		return fmt.Errorf("page %s: %w", method, err)
	}
	return decodeReply(method, raw, out)
}

func decodeReply(method string, raw []byte, out any) error {
	var r reply
	if err := json.Unmarshal(raw, &r); err != nil {
		return fmt.Errorf("page %s: decode reply: %w", method, err)
	}
	if r.Missing {
		return ErrBridgeMissing
	}
	if r.Error != "" {
		return fmt.Errorf("page %s: %s", method, r.Error)
	}
	if out == nil || len(r.Value) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Value, out); err != nil {
		return fmt.Errorf("page %s: decode value: %w", method, err)
	}
	return nil
}
