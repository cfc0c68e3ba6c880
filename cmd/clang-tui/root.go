package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Clang-dev/clang-tui/internal/api"
	"github.com/Clang-dev/clang-tui/internal/app"
	"github.com/Clang-dev/clang-tui/internal/capture"
	"github.com/Clang-dev/clang-tui/internal/config"
	"github.com/Clang-dev/clang-tui/internal/db"
	"github.com/Clang-dev/clang-tui/internal/logging"
	"github.com/Clang-dev/clang-tui/internal/session"
	"github.com/Clang-dev/clang-tui/internal/stream"

	tea "github.com/charmbracelet/bubbletea"
)

var v = config.New()

var rootCmd = &cobra.Command{
	Use:          "clang-tui",
	Short:        "Live classroom transcription in the terminal",
	SilenceUsage: true,
	RunE:         runTUI,
}

// flagKeys maps each persistent flag to the config key it overrides.
var flagKeys = map[string]string{
	"backend-url":     "backend_url",
	"stream-url":      "stream_url",
	"api-version":     "api_version",
	"db-path":         "db_path",
	"log-file":        "log_file",
	"log-level":       "log_level",
	"request-timeout": "request_timeout",
	"email-domain":    "email_domain",
	"framing":         "stream.framing",
	"capture-command": "capture.command",
	"capture-format":  "capture.format",
	"capture-input":   "capture.input",
	"capture-device":  "capture.device",
}

func init() {
	addPersistentFlags(rootCmd)
	bindFlags(v, rootCmd)

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(roomsCmd)
	rootCmd.AddCommand(createRoomCmd)
	rootCmd.AddCommand(transcriptCmd)
}

func addPersistentFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("backend-url", "", "Backend base URL")
	flags.String("stream-url", "", "Transcription socket base URL (derived from backend-url when empty)")
	flags.String("api-version", "", "API version path segment")
	flags.String("db-path", "", "Path to the local credential database")
	flags.String("log-file", "", "Log file path")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Duration("request-timeout", 0, "Timeout for backend requests")
	flags.String("email-domain", "", "Institutional email domain accepted at signup")
	flags.String("framing", "", "Audio framing on the socket (binary or json)")
	flags.String("capture-command", "", "Audio capture command")
	flags.String("capture-format", "", "Capture container (webm, ogg, pcm)")
	flags.String("capture-input", "", "ffmpeg input format, e.g. pulse or avfoundation")
	flags.String("capture-device", "", "ffmpeg input device")
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
}

// env is everything a command needs, built from the resolved config.
type env struct {
	cfg     *config.Config
	logger  *log.Logger
	store   *db.Store
	client  *api.Client
	session *session.Provider

	logCloser io.Closer
}

func setup() (*env, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	logger, closer, err := logging.Open(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	store, err := db.Open(cfg.DBPath)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("open credential store: %w", err)
	}

	logger.Info("starting", "backend", cfg.APIBase(), "stream", cfg.StreamBase(), "framing", cfg.Framing)

	client := api.NewClient(cfg.APIBase(), store, &http.Client{Timeout: cfg.RequestTimeout}, logger)
	return &env{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		client:    client,
		session:   session.NewProvider(client, logger),
		logCloser: closer,
	}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.logger.Warn("close store", "err", err)
	}
	e.logCloser.Close()
}

func (e *env) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), e.cfg.RequestTimeout)
}

func (e *env) deps() app.Deps {
	c := e.cfg.Capture
	return app.Deps{
		Backend: e.client,
		Session: e.session,
		Dial: app.StreamDialer(e.cfg.StreamBase(), stream.Options{
			Framing:          stream.Framing(e.cfg.Framing),
			HandshakeTimeout: e.cfg.RequestTimeout,
			Logger:           e.logger,
		}),
		NewRecorder: func() app.Recorder {
			return capture.NewRecorder(capture.Config{
				Command:    c.Command,
				Format:     c.Format,
				Input:      c.Input,
				Device:     c.Device,
				Slice:      c.Slice,
				SampleRate: c.SampleRate,
			}, e.logger)
		},
		Logger:         e.logger,
		RequestTimeout: e.cfg.RequestTimeout,
		ClosingDelay:   e.cfg.ClosingDelay,
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.Close()

	p := tea.NewProgram(app.New(e.deps()), tea.WithAltScreen())
	final, err := p.Run()
	if m, ok := final.(app.Model); ok {
		m.Shutdown()
	}
	if err != nil {
		e.logger.Error("program exited", "err", err)
		return err
	}
	e.logger.Info("exiting")
	return nil
}
