package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Theruz/8aAscents/client"
	"github.com/Theruz/8aAscents/internal/config"
)

const commandTimeout = 15 * time.Second

type rootFlags struct {
	debug     bool
	mode      string
	hostsFile string
	email     string
	password  string
}

func main() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	f := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:           "ascentsctl",
		Short:         "Talk to the Ascents backend from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.InitLogger(cmd.ErrOrStderr())
			level := config.ParseLogLevel(os.Getenv("LOG_LEVEL"))
			if f.debug {
				level = zerolog.DebugLevel
				_ = os.Setenv("ASCENTS_DEBUG", "true")
			}
			config.SetLogLevel(level)
			log.Debug().Str("mode", f.mode).Str("hosts_file", f.hostsFile).Msg("ascentsctl starting")
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&f.debug, "debug", "d", false, "Log every request and response")
	pf.StringVar(&f.mode, "mode", getEnv("ASCENTS_MODE", "development"), "Environment mode (mock, development, integration, uat, staging, production)")
	pf.StringVar(&f.hostsFile, "hosts-file", os.Getenv("ASCENTS_HOSTS_FILE"), "YAML file overriding the built-in hosts")
	pf.StringVar(&f.email, "email", os.Getenv("ASCENTS_EMAIL"), "Sign in with this email before the command runs")
	pf.StringVar(&f.password, "password", os.Getenv("ASCENTS_PASSWORD"), "Password for --email")

	rootCmd.AddCommand(newProfileCmd(f))
	rootCmd.AddCommand(newLoginCmd(f))
	rootCmd.AddCommand(newLogoutCmd(f))
	rootCmd.AddCommand(newServeMockCmd())

	return rootCmd
}

// newClient builds a client for the flags and signs in when credentials
// were given.
func newClient(ctx context.Context, f *rootFlags, rememberMe bool) (*client.Client, error) {
	mode, err := client.ParseMode(f.mode)
	if err != nil {
		return nil, err
	}
	opts := []client.Option{client.WithMode(mode), client.WithDebugLogging(f.debug)}
	if f.hostsFile != "" {
		opts = append(opts, client.WithHostsFile(f.hostsFile))
	}
	c, err := client.New(opts...)
	if err != nil {
		return nil, err
	}
	if f.email == "" {
		return c, nil
	}
	start := time.Now()
	err = c.Sessions().Login(ctx, client.LoginRequest{Email: f.email, Password: f.password, RememberMe: rememberMe})
	if err != nil {
		_ = c.Close()
		log.Error().Err(err).Str("email", f.email).Dur("elapsed", time.Since(start)).Msg("login failed")
		return nil, fmt.Errorf("login: %w", err)
	}
	log.Debug().Str("email", f.email).Dur("elapsed", time.Since(start)).Msg("signed in")
	return c, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
