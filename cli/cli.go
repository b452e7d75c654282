// Package cli wires the album and subset operations to a cobra command tree.
// Operation parameters are read from interactive prompts.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"kheops-album-tools/album"
	"kheops-album-tools/auth"
	"kheops-album-tools/config"
	"kheops-album-tools/constants"
	"kheops-album-tools/metadata"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// LoggerFactory builds the logger once the configuration is known.
type LoggerFactory func(env, level string) *zap.Logger

type App struct {
	configPath string
	newLogger  LoggerFactory
	openStore  func(ctx context.Context, mc *config.MetadataConfig, logger *zap.Logger) (metadata.Store, error)
}

func New(newLogger LoggerFactory) *App {
	return &App{
		configPath: constants.ConfigFileDefault,
		newLogger:  newLogger,
		openStore:  metadata.Open,
	}
}

// session holds what a command needs once configuration is loaded.
type session struct {
	cfg    *config.Config
	logger *zap.Logger
	prompt *prompter
	out    io.Writer
}

func (app *App) session(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(app.configPath)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:    cfg,
		logger: app.newLogger(cfg.Env(), cfg.LogLevel()),
		prompt: newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()),
		out:    cmd.OutOrStdout(),
	}, nil
}

// credential authenticates with the configured mode.
func (s *session) credential(ctx context.Context) (*auth.Credential, error) {
	authenticator, err := auth.New(s.cfg, s.logger)
	if err != nil {
		return nil, err
	}
	return authenticator.Authenticate(ctx)
}

func (s *session) albumClient(ctx context.Context) (*album.Client, error) {
	uri, err := s.cfg.KheopsURL()
	if err != nil {
		return nil, err
	}
	cred, err := s.credential(ctx)
	if err != nil {
		return nil, err
	}
	return album.NewClient(uri, cred, s.cfg.HTTPTimeout(), s.logger), nil
}

// settle prints failures of remote calls and local files and lets the
// command finish normally. Configuration and authentication errors are
// returned so the process exits with a failure.
func (s *session) settle(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *album.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintf(s.out, "Error: %s\n", apiErr.Reason)
		s.logger.Debug("remote call failed", zap.Error(err), zap.String("body", apiErr.Body))
		return nil
	}
	var tokenErr *auth.TokenError
	if errors.As(err, &tokenErr) || errors.Is(err, config.ErrMissingKey) {
		return err
	}
	fmt.Fprintf(s.out, "Error: %s\n", err)
	return nil
}

// RootCommand returns the command tree. Without a known sub-command it
// prints usage and does nothing.
func (app *App) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "kheops-album-tools",
		Short:         "Manage KHEOPS albums and extract DICOM subsets",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "unknown command %q\n\n", args[0])
			}
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&app.configPath, "config", constants.ConfigFileDefault, "configuration file")

	root.AddCommand(
		app.listCommand(),
		app.searchCommand(),
		app.getCommand(),
		app.createCommand(),
		app.updateCommand(),
		app.deleteCommand(),
		app.addCommand(),
		app.addStudyCommand(),
		app.addSeriesCommand(),
		app.deleteStudyCommand(),
		app.linkCommand(),
		app.extractCommand(),
		app.whoamiCommand(),
	)
	return root
}
