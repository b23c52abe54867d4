package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibeckermayer/rewards4me/internal/app"
	"github.com/ibeckermayer/rewards4me/internal/auth"
	"github.com/ibeckermayer/rewards4me/internal/config"
	"github.com/ibeckermayer/rewards4me/internal/notifier"
	"github.com/ibeckermayer/rewards4me/internal/observability"
	"github.com/ibeckermayer/rewards4me/internal/prompt"
	"github.com/ibeckermayer/rewards4me/internal/store"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
)

// Execute runs the CLI with args. Interrupts cancel the running command.
func Execute(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer observability.Sync()

	root := &cobra.Command{
		Use:           "r4m",
		Short:         "Microsoft Rewards login automation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			if cfg, err = config.LoadFile(path); err != nil {
				return err
			}
			observability.InitializeLogger(cfg.Logger)
			logger = observability.GetLogger()
			logger.Debug("Loaded config", zap.String("path", path))
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is the user config dir)")

	root.AddCommand(loginCmd(), scheduleCmd(), historyCmd(), openCmd(), botTestCmd())
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		if logger != nil {
			logger.Error("Command failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return err
	}
	return nil
}

// configPath returns --config or the default file, creating the latter on first run
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	path, created, err := config.EnsureExists()
	if err != nil {
		return "", err
	}
	if created {
		fmt.Fprintf(os.Stderr, "Created default config at: %s\n", path)
	}
	return path, nil
}

// newApp wires the browser, session store, history and notifier together.
// The returned func releases what newApp opened.
func newApp() (*app.App, func(), error) {
	historyPath, err := cfg.HistoryPath()
	if err != nil {
		return nil, nil, err
	}
	history, err := store.New(historyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history: %w", err)
	}

	// One reader over stdin for every login of the run
	lines := prompt.NewLines(os.Stdin)

	a := app.New(cfg, app.Options{
		Launcher: app.NewChromeLauncher(cfg.Browser, logger.Named("browser")),
		Sessions: auth.NewSessionStore(),
		History:  history,
		Notifier: notifier.NewFromConfig(cfg.Notify),
		Codes:    func() auth.CodeSource { return prompt.New(lines, os.Stderr) },
		Logger:   logger,
	})
	return a, func() { history.Close() }, nil
}
