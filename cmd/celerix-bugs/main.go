package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/celerix-dev/celerix-bugs/internal/config"
	"github.com/celerix-dev/celerix-bugs/pkg/sdk"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries state shared by every subcommand.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        *config.ClientConfig
	tracker    sdk.Tracker
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}
	root := &cobra.Command{
		Use:   "celerix-bugs",
		Short: "Command-line client for the celerix bug tracker",
		Long: `Command-line client for the celerix bug tracker.

With --addr (or CELERIX_STORE_ADDR) the CLI talks to a running daemon;
otherwise it opens the data directory directly.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.tracker == nil {
				return nil
			}
			return a.tracker.Close()
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configFile, "config", "", "YAML config file")
	f.String("addr", "", "daemon address host:port (embedded mode when empty)")
	f.String("actor", "", "email of the acting user")
	f.Bool("disable-tls", false, "connect to the daemon in plaintext")
	f.String("data-dir", "./data", "data directory for embedded mode")
	f.String("users-file", "", "YAML identity directory for embedded mode")
	for flag, key := range map[string]string{
		"addr":        "store_addr",
		"actor":       "actor",
		"disable-tls": "disable_tls",
		"data-dir":    "data_dir",
		"users-file":  "users_file",
	} {
		_ = a.v.BindPFlag(key, f.Lookup(flag))
	}

	root.AddCommand(
		a.createCmd(),
		a.statusCmd(),
		a.assignCmd(),
		a.listCmd(),
		a.showCmd(),
		a.auditCmd(),
		a.analyticsCmd(),
		a.summaryCmd(),
		a.whoamiCmd(),
		a.pingCmd(),
	)
	return root
}

func (a *app) open() error {
	cfg, err := config.LoadClient(a.v, a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	tracker, err := sdk.New(cfg)
	if err != nil {
		if cfg.StoreAddr != "" {
			return fmt.Errorf("failed to connect to %s: %w", cfg.StoreAddr, err)
		}
		return err
	}
	a.tracker = tracker
	return nil
}

// actor returns the configured acting user.
func (a *app) actor() (string, error) {
	actor := strings.TrimSpace(a.cfg.Actor)
	if actor == "" {
		return "", errors.New("--actor (or CELERIX_ACTOR) is required")
	}
	return actor, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
