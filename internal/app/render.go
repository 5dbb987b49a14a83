package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/interaction"
	"github.com/ayusman/mudra/internal/overlay"
)

// tick is one render frame: take the newest observation, advance the
// filter, drive the dispatcher and draw.
func (c *Controller) tick(ctx context.Context, _ time.Duration) {
	c.applyPending()

	c.frames++
	if c.frames%viewportRefresh == 0 {
		c.refreshViewport(ctx)
	}

	obs, fresh, ok := c.slot.Latest()
	if !ok {
		obs.Gesture, obs.Pose = gesture.None, gesture.PoseUnknown
	}
	present := ok && obs.HandPresent
	if fresh && present {
		c.filter.SetTarget(obs.Target)
	}
	pos := c.filter.Step()

	c.dispatcher.OnFrame(ctx, interaction.Frame{
		Gesture:     obs.Gesture,
		Position:    pos,
		HandPresent: present,
	})
	mode := c.dispatcher.Mode()

	frame := overlay.Frame{
		Gesture:     string(obs.Gesture),
		Pose:        string(obs.Pose),
		Mode:        string(mode),
		X:           pos.X,
		Y:           pos.Y,
		Confidence:  obs.Confidence,
		HandPresent: present,
		Landmarks:   obs.Landmarks,
		Timestamp:   c.cfg.Clock().UnixMilli(),
	}
	if err := c.cfg.Surface.Draw(ctx, frame); err != nil {
		c.logger.Debug("Cursor draw failed", zap.Error(err))
	}
	if c.cfg.Overlay != nil {
		if err := c.cfg.Overlay.Draw(ctx, frame); err != nil {
			c.logger.Debug("Overlay draw failed", zap.Error(err))
		}
	}

	c.statusMu.Lock()
	if ok {
		c.last = obs
	}
	c.status.Gesture = obs.Gesture
	c.status.Pose = obs.Pose
	c.status.Mode = mode
	c.status.Position = pos
	c.status.HandPresent = present
	c.status.Confidence = obs.Confidence
	c.statusMu.Unlock()
}

// refreshViewport picks up page resizes.
func (c *Controller) refreshViewport(ctx context.Context) {
	size, err := c.cfg.Surface.Viewport(ctx)
	if err != nil {
		c.logger.Debug("Viewport check failed", zap.Error(err))
		return
	}
	if size == c.viewport || size.Empty() {
		return
	}
	c.setViewport(size)
	c.logger.Debug("Viewport changed", zap.Float64("width", size.Width), zap.Float64("height", size.Height))
}
