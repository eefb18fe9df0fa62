package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ChristianLindehammar/http-reply-test-server/internal/config"
	"github.com/ChristianLindehammar/http-reply-test-server/internal/replyserver"
	"github.com/ChristianLindehammar/http-reply-test-server/internal/testcase"
	"github.com/ChristianLindehammar/http-reply-test-server/pkg/clierror"
	"github.com/ChristianLindehammar/http-reply-test-server/pkg/journal"
)

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := buildConfig(cmd, opts)
	if err != nil {
		return err
	}
	if opts.noColor {
		color.NoColor = true
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return clierror.InvalidConfig(err)
	}

	console := replyserver.NewConsole(cmd.OutOrStdout())
	console.Banner()

	emitter, closeJournal, err := openJournal(cfg, logger)
	if err != nil {
		return err
	}
	defer closeJournal()

	srv := replyserver.New(cfg,
		replyserver.WithLogger(logger),
		replyserver.WithConsole(console),
		replyserver.WithJournal(emitter),
	)
	if err := srv.Listen(); err != nil {
		return clierror.BindFailed(cfg.ListenAddr(), err)
	}
	defer srv.Close()

	set := testcase.Resolve(cfg, logger)
	defer set.Close()

	if err := srv.Run(cmd.Context(), set); err != nil {
		return clierror.InternalError(err)
	}
	return nil
}

// buildConfig layers defaults, the config file, the environment and the
// flags the user set explicitly, then validates the result.
func buildConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if opts.configPath != "" {
		if err := cfg.LoadFile(opts.configPath); err != nil {
			return nil, clierror.ConfigFileFailed(opts.configPath, err)
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, clierror.InvalidConfig(err)
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = opts.port
	}
	if flags.Changed("closedelay") {
		cfg.CloseDelay = time.Duration(opts.closeDelayMS) * time.Millisecond
	}
	if flags.Changed("start") {
		cfg.Start = opts.start
	}
	if flags.Changed("stop") {
		cfg.Stop = opts.stop
	}
	if flags.Changed("single") {
		cfg.SetSingle(opts.single)
	}
	if flags.Changed("file") {
		cfg.File = opts.file
	}
	if flags.Changed("testdir") {
		cfg.TestDir = opts.testDir
	}
	if flags.Changed("zip") {
		cfg.Zip = opts.zip
	}
	if flags.Changed("once") {
		cfg.Once = opts.once
	}
	if flags.Changed("read-timeout") {
		cfg.ReadTimeout = time.Duration(opts.readTimeoutMS) * time.Millisecond
	}
	if flags.Changed("journal") {
		cfg.Journal = opts.journal
	}
	if flags.Changed("syslog") {
		cfg.Syslog = opts.syslog
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, clierror.InvalidConfig(err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// openJournal builds the configured journal backends. A missing syslog
// daemon only disables syslog recording.
func openJournal(cfg *config.Config, logger *slog.Logger) (journal.Emitter, func(), error) {
	var backends []journal.Emitter
	var closers []func() error

	if cfg.Journal != "" {
		fe, err := journal.NewFileEmitter(cfg.Journal)
		if err != nil {
			return nil, nil, clierror.InvalidConfig(fmt.Errorf("journal: %w", err))
		}
		backends = append(backends, fe)
		closers = append(closers, fe.Close)
	}
	if cfg.Syslog {
		se, err := journal.NewSyslogEmitter(journal.SyslogConfig{})
		if err != nil {
			logger.Warn("syslog journal unavailable, continuing without it", "error", err)
		} else {
			backends = append(backends, se)
			closers = append(closers, se.Close)
		}
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("close journal failed", "error", err)
			}
		}
	}
	return journal.Multi(backends...), closeAll, nil
}
