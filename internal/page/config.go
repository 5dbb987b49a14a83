package page

import (
	"errors"
	"time"
)

// Config controls the browser that hosts the driven page.
type Config struct {
	URL               string        `mapstructure:"url" json:"url"`
	Headless          bool          `mapstructure:"headless" json:"headless"`
	ExecPath          string        `mapstructure:"exec_path" json:"exec_path"`
	UserDataDir       string        `mapstructure:"user_data_dir" json:"user_data_dir"`
	WindowWidth       int           `mapstructure:"window_width" json:"window_width"`
	WindowHeight      int           `mapstructure:"window_height" json:"window_height"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" json:"navigation_timeout"`
	// CallTimeout bounds a single bridge call. The render loop makes several
	// per frame, so keep it well under a second.
	CallTimeout time.Duration `mapstructure:"call_timeout" json:"call_timeout"`
	ShowCursor  bool          `mapstructure:"show_cursor" json:"show_cursor"`
	// Args are extra Chrome flags, either "name" or "name=value".
	Args []string `mapstructure:"args" json:"args"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		URL:               "http://localhost:3000",
		WindowWidth:       1280,
		WindowHeight:      800,
		NavigationTimeout: 30 * time.Second,
		CallTimeout:       250 * time.Millisecond,
		ShowCursor:        true,
	}
}

// Validate checks c for values Launch cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.URL == "" {
		errs = append(errs, errors.New("browser.url is required"))
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		errs = append(errs, errors.New("browser window size must be positive"))
	}
	if c.CallTimeout <= 0 {
		errs = append(errs, errors.New("browser.call_timeout must be positive"))
	}
	if c.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("browser.navigation_timeout must be positive"))
	}
	return errors.Join(errs...)
}
