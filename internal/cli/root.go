package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"autoportal/internal/logger"
	"autoportal/pkg/client"
	"autoportal/pkg/session"
)

const (
	configDir  = ".autoportal"
	configFile = "config.yaml"

	serverKey  = "server"
	sessionKey = "session"
	timeoutKey = "timeout"
)

type app struct {
	cfg    *viper.Viper
	path   string
	client *client.Client
	logger *slog.Logger
	sub    *session.Subscription
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		server  string
		verbose bool
	)
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "portalctl",
		Short:         "Command-line client for the auto-repair customer portal",
		Long:          "portalctl signs in to the portal API, keeps the session between runs, and opens portal pages through the same role guard the web client uses.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := "warn"
			if verbose {
				level = "debug"
			}
			return a.wire(cfgPath, server, level, cmd.ErrOrStderr())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.sub.Unsubscribe()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default $HOME/.autoportal/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&server, "server", "", "Portal API base URL (env PORTAL_SERVER)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log session and role resolution events")

	rootCmd.AddCommand(
		newRegisterCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newRefreshCmd(a),
		newWhoamiCmd(a),
		newOpenCmd(a),
		newAdminCmd(a),
	)

	return rootCmd
}

func (a *app) wire(cfgPath, server, level string, logOut io.Writer) error {
	if cfgPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
		cfgPath = filepath.Join(home, configDir, configFile)
	}

	cfg := viper.New()
	cfg.SetConfigFile(cfgPath)
	cfg.SetEnvPrefix("PORTAL")
	cfg.AutomaticEnv()
	cfg.SetDefault(serverKey, "http://localhost:8082")
	cfg.SetDefault(timeoutKey, "10s")

	if err := cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read config file: %w", err)
		}
	}
	if server != "" {
		cfg.Set(serverKey, server)
	}

	var saved session.Session
	if err := cfg.UnmarshalKey(sessionKey, &saved); err != nil {
		return fmt.Errorf("read saved session: %w", err)
	}
	var initial *session.Session
	if saved.Valid() {
		initial = &saved
	}

	a.cfg = cfg
	a.path = cfgPath
	a.logger = slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: logger.ParseLevel(level)}))
	a.client = client.New(cfg.GetString(serverKey), nil, initial)
	a.sub = a.client.Subscribe(func(ev session.Event) {
		if ev.Kind == session.ProfileChanged {
			return
		}
		if err := a.persist(ev.Session); err != nil {
			a.logger.Error("save session", "error", err)
		}
	})
	return nil
}

func (a *app) timeout() time.Duration {
	d := a.cfg.GetDuration(timeoutKey)
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

// persist writes the session to the config file; nil clears it.
func (a *app) persist(s *session.Session) error {
	userID, token := "", ""
	if s.Valid() {
		userID, token = s.UserID, s.AccessToken
	}
	a.cfg.Set(sessionKey+".user_id", userID)
	a.cfg.Set(sessionKey+".access_token", token)

	if err := os.MkdirAll(filepath.Dir(a.path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := a.cfg.WriteConfigAs(a.path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Chmod(a.path, 0o600)
}
