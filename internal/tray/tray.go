// Package tray provides the system tray menu for toggling gesture mode.
package tray

import (
	"context"
	"sync"
	"time"

	"github.com/getlantern/systray"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
)

// pollInterval is how often the menu is refreshed from the controller.
const pollInterval = 250 * time.Millisecond

// Controller is the part of app.Controller the tray drives.
type Controller interface {
	Status() app.Status
	SetEnabled(ctx context.Context, on bool) error
}

// Tray represents the system tray application.
type Tray struct {
	ctrl      Controller
	logger    *zap.Logger
	onOverlay func()
	onQuit    func()
	mu        sync.RWMutex
	ctx       context.Context

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuLastGesture *systray.MenuItem
	menuNotice      *systray.MenuItem
}

// New creates a Tray over ctrl.
func New(ctrl Controller, logger *zap.Logger) *Tray {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tray{
		ctrl:   ctrl,
		logger: logger.Named("tray"),
		ctx:    context.Background(),
	}
}

// OnOverlay sets the callback for the "Open Overlay..." item.
func (t *Tray) OnOverlay(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOverlay = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run shows the tray and blocks until Quit is clicked or ctx is cancelled.
// On macOS it must be called from the main goroutine.
func (t *Tray) Run(ctx context.Context) {
	t.mu.Lock()
	t.ctx = ctx
	t.mu.Unlock()

	stop := context.AfterFunc(ctx, systray.Quit)
	defer stop()
	systray.Run(t.onReady, t.onExit)
}

// onReady builds the menu and starts the event loop.
func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra gesture mode")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItemCheckbox("Gesture mode", "Toggle gesture mode", false)
	systray.AddSeparator()

	t.menuLastGesture = systray.AddMenuItem(lastTitle(gesture.None), "Last detected gesture")
	t.menuLastGesture.Disable()
	t.menuNotice = systray.AddMenuItem("", "Why gesture mode stopped")
	t.menuNotice.Disable()
	t.menuNotice.Hide()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOverlay := systray.AddMenuItem("Open Overlay...", "Open the overlay in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOverlay.ClickedCh:
				t.handleOverlay()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			case <-ticker.C:
				t.refresh()
			}
		}
	}()
}

func (t *Tray) onExit() {
	t.logger.Debug("Tray exited")
}

// handleToggle flips gesture mode. A failed enable leaves the checkbox
// clear and the reason on the notice line.
func (t *Tray) handleToggle() {
	t.mu.RLock()
	ctx := t.ctx
	t.mu.RUnlock()

	want := !t.ctrl.Status().Enabled
	if err := t.ctrl.SetEnabled(ctx, want); err != nil {
		t.logger.Warn("Failed to toggle gesture mode", zap.Bool("enabled", want), zap.Error(err))
	}
	t.refresh()
}

// refresh copies the controller status onto the menu.
func (t *Tray) refresh() {
	status := t.ctrl.Status()

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuToggle != nil {
		if status.Enabled {
			t.menuToggle.Check()
		} else {
			t.menuToggle.Uncheck()
		}
	}
	if t.menuLastGesture != nil && status.Enabled {
		t.menuLastGesture.SetTitle(lastTitle(status.Gesture))
	}
	if t.menuNotice != nil {
		if title, ok := noticeTitle(status.Notice); ok {
			t.menuNotice.SetTitle(title)
			t.menuNotice.Show()
		} else {
			t.menuNotice.Hide()
		}
	}
}

func (t *Tray) handleOverlay() {
	t.mu.RLock()
	callback := t.onOverlay
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

func lastTitle(l gesture.Label) string {
	if l == "" {
		l = gesture.None
	}
	return "Last: " + string(l)
}

func noticeTitle(notice string) (string, bool) {
	if notice == "" {
		return "", false
	}
	return "Notice: " + notice, true
}
