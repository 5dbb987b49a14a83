// Package config loads mudra's configuration through viper: built-in
// defaults, an optional YAML file and MUDRA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/interaction"
	"github.com/ayusman/mudra/internal/motion"
	"github.com/ayusman/mudra/internal/page"
	"github.com/ayusman/mudra/internal/tracker"
)

// Config is the full program configuration.
type Config struct {
	Logger      LoggerConfig       `mapstructure:"logger" yaml:"logger"`
	Camera      capture.Config     `mapstructure:"camera" yaml:"camera"`
	Tracker     tracker.Config     `mapstructure:"tracker" yaml:"tracker"`
	Detector    detector.Config    `mapstructure:"detector" yaml:"detector"`
	Gesture     gesture.Thresholds `mapstructure:"gesture" yaml:"gesture"`
	Motion      motion.Params      `mapstructure:"motion" yaml:"motion"`
	Interaction interaction.Config `mapstructure:"interaction" yaml:"interaction"`
	Render      RenderConfig       `mapstructure:"render" yaml:"render"`
	Browser     page.Config        `mapstructure:"browser" yaml:"browser"`
	Server      ServerConfig       `mapstructure:"server" yaml:"server"`
	Store       StoreConfig        `mapstructure:"store" yaml:"store"`
	Tray        TrayConfig         `mapstructure:"tray" yaml:"tray"`
}

// LoggerConfig configures the zap logger and its optional rotating file.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig names the console colour per log level.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// RenderConfig sets the render loop cadence.
type RenderConfig struct {
	FPS int `mapstructure:"fps" yaml:"fps"`
}

// Interval is the time between render ticks.
func (r RenderConfig) Interval() time.Duration {
	return time.Second / time.Duration(r.FPS)
}

// ServerConfig configures the local HTTP API.
type ServerConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr      string `mapstructure:"addr" yaml:"addr"`
	StaticDir string `mapstructure:"static_dir" yaml:"static_dir"`
}

// StoreConfig locates the sqlite database.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// TrayConfig toggles the system tray icon.
type TrayConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Tuning is the live-adjustable subset of the configuration. It is persisted
// by the store and applied to a running controller.
type Tuning struct {
	Gesture     gesture.Thresholds `json:"gesture"`
	Motion      motion.Params      `json:"motion"`
	Interaction interaction.Config `json:"interaction"`
}

// Tuning extracts the live-adjustable values.
func (c *Config) Tuning() Tuning {
	return Tuning{Gesture: c.Gesture, Motion: c.Motion, Interaction: c.Interaction}
}

// ApplyTuning overwrites the live-adjustable values.
func (c *Config) ApplyTuning(t Tuning) {
	c.Gesture = t.Gesture
	c.Motion = t.Motion
	c.Interaction = t.Interaction
}

// Validate checks a Tuning for values the pipeline cannot run with.
func (t Tuning) Validate() error {
	var errs []error
	if t.Gesture.Pinch <= 0 || t.Gesture.Pinch >= 1 {
		errs = append(errs, fmt.Errorf("gesture.pinch_threshold must be in (0, 1), got %v", t.Gesture.Pinch))
	}
	if t.Gesture.ExtensionMargin < 0 {
		errs = append(errs, fmt.Errorf("gesture.extension_margin must not be negative"))
	}
	if err := t.Motion.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("motion: %w", err))
	}
	if err := t.Interaction.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("interaction: %w", err))
	}
	return errors.Join(errs...)
}

// SetDefaults registers every default with v.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "mudra")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Camera --
	cam := capture.DefaultConfig()
	v.SetDefault("camera.device_id", cam.DeviceID)
	v.SetDefault("camera.width", cam.Width)
	v.SetDefault("camera.height", cam.Height)
	v.SetDefault("camera.fps", cam.FPS)

	// -- Tracker --
	tr := tracker.DefaultConfig()
	v.SetDefault("tracker.mirror", tr.Mirror)
	v.SetDefault("tracker.motion_threshold", tr.MotionThreshold)
	v.SetDefault("tracker.gate.idle_fps", tr.Gate.IdleFPS)
	v.SetDefault("tracker.gate.active_fps", tr.Gate.ActiveFPS)
	v.SetDefault("tracker.gate.idle_timeout", tr.Gate.IdleTimeout)

	// -- Detector --
	det := detector.DefaultConfig()
	v.SetDefault("detector.max_hands", det.MaxHands)
	v.SetDefault("detector.min_confidence", det.MinConfidence)
	v.SetDefault("detector.min_tracking_confidence", det.MinTrackingConf)
	v.SetDefault("detector.script_path", "")
	v.SetDefault("detector.python_path", "")
	v.SetDefault("detector.idle_timeout", det.IdleTimeout)
	v.SetDefault("detector.response_timeout", det.ResponseTimeout)

	// -- Gesture --
	v.SetDefault("gesture.pinch_threshold", gesture.DefaultPinchThreshold)
	v.SetDefault("gesture.extension_margin", gesture.DefaultExtensionMargin)

	// -- Motion --
	v.SetDefault("motion.stiffness", motion.DefaultStiffness)
	v.SetDefault("motion.damping", motion.DefaultDamping)
	v.SetDefault("motion.projection", motion.DefaultProjection)

	// -- Interaction --
	ic := interaction.DefaultConfig()
	offsets := make([]map[string]float64, 0, len(ic.FuzzyOffsets))
	for _, o := range ic.FuzzyOffsets {
		offsets = append(offsets, map[string]float64{"x": o.X, "y": o.Y})
	}
	v.SetDefault("interaction.click_cooldown", ic.ClickCooldown)
	v.SetDefault("interaction.fuzzy_offsets", offsets)
	v.SetDefault("interaction.scroll_baseline", ic.ScrollBaseline)
	v.SetDefault("interaction.scroll_step", ic.ScrollStep)
	v.SetDefault("interaction.scroll_max", ic.ScrollMax)
	v.SetDefault("interaction.pointer_id", ic.PointerID)
	v.SetDefault("interaction.pointer_type", ic.PointerType)

	// -- Render --
	v.SetDefault("render.fps", 60)

	// -- Browser --
	br := page.DefaultConfig()
	v.SetDefault("browser.url", br.URL)
	v.SetDefault("browser.headless", br.Headless)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_data_dir", "")
	v.SetDefault("browser.window_width", br.WindowWidth)
	v.SetDefault("browser.window_height", br.WindowHeight)
	v.SetDefault("browser.navigation_timeout", br.NavigationTimeout)
	v.SetDefault("browser.call_timeout", br.CallTimeout)
	v.SetDefault("browser.show_cursor", br.ShowCursor)

	// -- Server --
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", "127.0.0.1:8417")
	v.SetDefault("server.static_dir", "")

	// -- Store --
	v.SetDefault("store.path", DefaultStorePath())

	// -- Tray --
	v.SetDefault("tray.enabled", true)
}

// Default returns the configuration produced by SetDefaults alone.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	if err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values that would break startup.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Tuning().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Render.FPS <= 0 || c.Render.FPS > 240 {
		errs = append(errs, fmt.Errorf("render.fps must be in 1..240, got %d", c.Render.FPS))
	}
	if c.Detector.MaxHands <= 0 {
		errs = append(errs, errors.New("detector.max_hands must be positive"))
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		errs = append(errs, errors.New("detector.min_confidence must be between 0.0 and 1.0"))
	}
	if c.Browser.URL == "" {
		errs = append(errs, errors.New("browser.url is required"))
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required when the server is enabled"))
	}
	return errors.Join(errs...)
}
