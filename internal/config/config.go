// Package config loads clang-tui settings from defaults, an optional config
// file, a .env file, environment variables, and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Clang-dev/clang-tui/internal/db"
)

// EnvPrefix is prepended to every environment override, e.g. CLANG_BACKEND_URL.
const EnvPrefix = "CLANG"

// Config holds the resolved settings.
type Config struct {
	BackendURL     string
	APIVersion     string
	StreamURL      string
	DBPath         string
	LogFile        string
	LogLevel       string
	RequestTimeout time.Duration
	EmailDomain    string
	ClosingDelay   time.Duration
	Framing        string

	Capture Capture
}

// Capture configures the microphone recorder.
type Capture struct {
	Command    string
	Format     string
	Input      string
	Device     string
	Slice      time.Duration
	SampleRate int
}

// APIBase returns the versioned REST base, e.g. https://host/0.1.0.
func (c *Config) APIBase() string {
	return strings.TrimRight(c.BackendURL, "/") + "/" + c.APIVersion
}

// StreamBase returns the versioned websocket base. When stream_url is unset it
// is derived from the backend URL by swapping the scheme.
func (c *Config) StreamBase() string {
	base := c.StreamURL
	if base == "" {
		base = strings.TrimRight(c.BackendURL, "/")
		switch {
		case strings.HasPrefix(base, "https://"):
			base = "wss://" + strings.TrimPrefix(base, "https://")
		case strings.HasPrefix(base, "http://"):
			base = "ws://" + strings.TrimPrefix(base, "http://")
		}
	}
	return strings.TrimRight(base, "/") + "/" + c.APIVersion
}

// Dir returns the per-user config directory.
func Dir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "clang-tui")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "clang-tui")
}

// SetDefaults registers every key with its default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend_url", "https://clang-a3xo.onrender.com")
	v.SetDefault("api_version", "0.1.0")
	v.SetDefault("stream_url", "")
	v.SetDefault("db_path", db.DefaultDBPath())
	v.SetDefault("log_file", filepath.Join(Dir(), "clang-tui.log"))
	v.SetDefault("log_level", "info")
	v.SetDefault("request_timeout", 15*time.Second)
	v.SetDefault("email_domain", "kaist.ac.kr")
	v.SetDefault("closing_delay", 2*time.Second)
	v.SetDefault("stream.framing", "binary")

	v.SetDefault("capture.command", "ffmpeg")
	v.SetDefault("capture.format", "webm")
	v.SetDefault("capture.input", defaultCaptureInput())
	v.SetDefault("capture.device", defaultCaptureDevice())
	v.SetDefault("capture.slice", 500*time.Millisecond)
	v.SetDefault("capture.sample_rate", 16000)
}

func defaultCaptureInput() string {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation"
	case "windows":
		return "dshow"
	default:
		return "pulse"
	}
}

func defaultCaptureDevice() string {
	switch runtime.GOOS {
	case "darwin":
		return ":0"
	case "windows":
		return "audio=default"
	default:
		return "default"
	}
}

// New returns a viper instance with defaults, config search paths, and env
// binding applied. Flags may be bound to it before Load is called.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(Dir())
	v.AddConfigPath(".")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads .env and the optional config file into v and resolves a Config.
func Load(v *viper.Viper) (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env file: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		BackendURL:     v.GetString("backend_url"),
		APIVersion:     v.GetString("api_version"),
		StreamURL:      v.GetString("stream_url"),
		DBPath:         v.GetString("db_path"),
		LogFile:        v.GetString("log_file"),
		LogLevel:       v.GetString("log_level"),
		RequestTimeout: v.GetDuration("request_timeout"),
		EmailDomain:    strings.TrimPrefix(v.GetString("email_domain"), "@"),
		ClosingDelay:   v.GetDuration("closing_delay"),
		Framing:        v.GetString("stream.framing"),
		Capture: Capture{
			Command:    v.GetString("capture.command"),
			Format:     v.GetString("capture.format"),
			Input:      v.GetString("capture.input"),
			Device:     v.GetString("capture.device"),
			Slice:      v.GetDuration("capture.slice"),
			SampleRate: v.GetInt("capture.sample_rate"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the resolved settings.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend_url %q is not an absolute URL", c.BackendURL)
	}
	if c.APIVersion == "" {
		return fmt.Errorf("api_version is required")
	}
	switch c.Framing {
	case "binary", "json":
	default:
		return fmt.Errorf("invalid stream.framing: %s (must be binary or json)", c.Framing)
	}
	if c.Capture.Slice < 250*time.Millisecond || c.Capture.Slice > 500*time.Millisecond {
		return fmt.Errorf("capture.slice %v out of range (250ms-500ms)", c.Capture.Slice)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.ClosingDelay < 0 {
		return fmt.Errorf("closing_delay must not be negative")
	}
	return nil
}
