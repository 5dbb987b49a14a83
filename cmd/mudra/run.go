package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/observability"
	"github.com/ayusman/mudra/internal/overlay"
	"github.com/ayusman/mudra/internal/page"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

var errBrowserClosed = errors.New("browser closed")

func newRunCommand(opts *rootOptions) *cobra.Command {
	var noTray bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the target page and start gesture mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *opts.config
			if noTray {
				cfg.Tray.Enabled = false
			}
			return runDaemon(cmd.Context(), &cfg, observability.GetLogger())
		},
	}

	f := cmd.Flags()
	f.String("url", "", "page to drive (browser.url)")
	f.Int("camera", 0, "camera device index (camera.device_id)")
	f.Bool("headless", false, "run Chrome without a window (browser.headless)")
	f.String("addr", "", "HTTP API listen address (server.addr)")
	f.BoolVar(&noTray, "no-tray", false, "do not show the system tray icon")

	for key, name := range map[string]string{
		"browser.url":      "url",
		"camera.device_id": "camera",
		"browser.headless": "headless",
		"server.addr":      "addr",
	} {
		_ = opts.v.BindPFlag(key, f.Lookup(name))
	}
	return cmd
}

// runDaemon launches the browser, enables gesture mode and serves the API
// until ctx is cancelled, the tray quits or the browser goes away.
func runDaemon(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	det, err := detector.NewMediaPipeDetector(cfg.Detector, logger)
	if err != nil {
		return fmt.Errorf("hand detector: %w", err)
	}
	defer det.Close()

	preview := capture.NewPreview()
	hub := overlay.NewHub(overlay.DefaultBroadcastFPS, logger)
	defer hub.Close()

	pg, err := page.Launch(ctx, cfg.Browser, logger)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer pg.Close()

	ctrl, err := app.New(app.Config{
		Camera:         capture.NewCamera(cfg.Camera),
		Detector:       det,
		Surface:        pg,
		Store:          st,
		Preview:        preview,
		Overlay:        hub,
		Tracker:        cfg.Tracker,
		Tuning:         cfg.Tuning(),
		RenderInterval: cfg.Render.Interval(),
	}, logger)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := ctrl.Enable(ctx); err != nil {
		logger.Warn("Gesture mode is off", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Server.Enabled {
		srv := server.New(server.Config{
			StaticDir:  cfg.Server.StaticDir,
			Controller: ctrl,
			Store:      st,
			Preview:    preview,
			Overlay:    hub,
			Logger:     logger,
		})
		g.Go(func() error { return srv.Run(gctx, cfg.Server.Addr) })
	}

	g.Go(func() error {
		select {
		case <-pg.Done():
			return errBrowserClosed
		case <-gctx.Done():
			return nil
		}
	})

	if cfg.Tray.Enabled {
		t := tray.New(ctrl, logger)
		if cfg.Server.Enabled && cfg.Server.StaticDir != "" {
			url := "http://" + browsableAddr(cfg.Server.Addr) + "/"
			t.OnOverlay(func() {
				if err := openURL(url); err != nil {
					logger.Warn("Failed to open overlay", zap.String("url", url), zap.Error(err))
				}
			})
		}
		t.OnQuit(cancel)
		t.Run(gctx)
		cancel()
	}

	err = g.Wait()
	if errors.Is(err, errBrowserClosed) {
		logger.Info("Browser closed, shutting down")
		return nil
	}
	return err
}

// browsableAddr turns a listen address into one a browser can open.
func browsableAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func openURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
