package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"drravalement/site/internal/apperr"
	"drravalement/site/internal/authctx"
	"drravalement/site/internal/authz"
	"drravalement/site/internal/client"
	"drravalement/site/internal/gate"
	"drravalement/site/internal/models"
)

var (
	cfgFile string
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "adminctl",
	Short: "Administer the DR RAVALEMENT back office",
	Long: `adminctl manages users and quote requests of the DR RAVALEMENT site.

Examples:
  adminctl login --email admin@drravalement.fr
  adminctl users list
  adminctl quotes list --status pending
  adminctl logout`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/drravalement/adminctl.yaml)")
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "site API base URL")
	rootCmd.PersistentFlags().String("credentials", "", "credentials file holding the session token")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print JSON output")
	rootCmd.PersistentFlags().Bool("debug", false, "verbose logging")

	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("credentials", rootCmd.PersistentFlags().Lookup("credentials"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if dir, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(dir + "/drravalement")
		viper.SetConfigName("adminctl")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("DRRAV_ADMIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

// app bundles the API client, the authentication context driving it and the
// gate deciding whether a command may run.
type app struct {
	client *client.Client
	auth   *authctx.Context
	gate   gate.Gate
	log    zerolog.Logger
}

func newApp(server string, tokens authctx.TokenStore, logger zerolog.Logger) *app {
	a := &app{gate: gate.New(authz.New(authz.DefaultTable()), gate.DefaultLoginPath), log: logger}
	a.client = client.New(server, client.WithToken(func() string { return a.auth.Token() }))
	a.auth = authctx.New(a.client, tokens, logger)
	return a
}

func loadApp() (*app, error) {
	path := viper.GetString("credentials")
	if path == "" {
		var err error
		if path, err = authctx.DefaultCredentialsPath(); err != nil {
			return nil, fmt.Errorf("locate credentials file: %w", err)
		}
	}

	level := zerolog.WarnLevel
	if viper.GetBool("debug") {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	return newApp(viper.GetString("server"), authctx.NewFileTokenStore(path), logger), nil
}

var (
	errNotLoggedIn = errors.New("not logged in, run `adminctl login`")
	errForbidden   = errors.New("permission denied")
)

// authorize watches the authentication context for command, restores the
// stored session and acts on the decision the watcher settled on.
func (a *app) authorize(ctx context.Context, req gate.Requirement, command string) (*models.User, error) {
	w := a.gate.Watch(a.auth, command, req, func(d gate.Decision) {
		a.log.Debug().Str("command", command).Stringer("state", d.State).Msg("gate decision")
	})
	defer w.Close()

	st := a.auth.Restore(ctx)
	switch w.Decision().State {
	case gate.StateAuthorized:
		return st.User, nil
	case gate.StateForbidden:
		return nil, fmt.Errorf("%w: %s requires %s", errForbidden, command, req)
	case gate.StateUnavailable:
		return nil, fmt.Errorf("server unavailable: %w", st.Err)
	default:
		return nil, errNotLoggedIn
	}
}

// gated wraps a command body behind authorize.
func gated(req gate.Requirement, run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		if _, err := a.authorize(cmd.Context(), req, cmd.CommandPath()); err != nil {
			printError(err)
			return err
		}
		if err := run(cmd, args, a); err != nil {
			printError(err)
			return err
		}
		return nil
	}
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

func printTableHeader(w *tabwriter.Writer, cols ...string) {
	fmt.Fprintln(w, strings.Join(cols, "\t"))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printError(err error) {
	var apiErr *apperr.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintf(os.Stderr, "Error: %s (%s)\n", apiErr.Message, apiErr.Code)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
