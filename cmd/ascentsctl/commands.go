package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Theruz/8aAscents/client"
)

func newProfileCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Read and create profiles",
	}
	cmd.AddCommand(newProfileGetCmd(f))
	cmd.AddCommand(newProfileCreateCmd(f))
	return cmd
}

func newProfileGetCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Fetch one profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("profile id %q: %w", args[0], err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			c, err := newClient(ctx, f, false)
			if err != nil {
				return err
			}
			defer c.Close()

			start := time.Now()
			p, err := c.Profiles().Get(ctx, id)
			if err != nil {
				log.Error().Err(err).Int("profile_id", id).Dur("elapsed", time.Since(start)).Msg("get profile failed")
				return err
			}
			log.Debug().Int("profile_id", p.ID).Dur("elapsed", time.Since(start)).Msg("profile fetched")
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
}

func newProfileCreateCmd(f *rootFlags) *cobra.Command {
	var req client.CreateProfileRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			c, err := newClient(ctx, f, false)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Profiles().Create(ctx, req); err != nil {
				log.Error().Err(err).Str("birth_date", req.BirthDate).Msg("create profile failed")
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"created": true, "birthDate": req.BirthDate})
		},
	}
	cmd.Flags().StringVar(&req.BirthDate, "birth-date", "", "Birth date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&req.InsuranceNumber, "insurance-number", "", "Insurance number")
	_ = cmd.MarkFlagRequired("birth-date")
	_ = cmd.MarkFlagRequired("insurance-number")
	return cmd
}

func newLoginCmd(f *rootFlags) *cobra.Command {
	var rememberMe bool
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check credentials and print the resulting session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.email == "" {
				return fmt.Errorf("--email is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			c, err := newClient(ctx, f, rememberMe)
			if err != nil {
				return err
			}
			defer c.Close()

			s := c.Session()
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"email":      s.Email(),
				"authLevel":  s.CurrentAuthLevel().String(),
				"rememberMe": c.HasRememberMeCookie(),
			})
		},
	}
	cmd.Flags().BoolVar(&rememberMe, "remember-me", false, "Ask the backend to remember the login")
	return cmd
}

func newLogoutCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign in with --email, then end the server session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.email == "" {
				return fmt.Errorf("--email is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			c, err := newClient(ctx, f, false)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Sessions().Logout(ctx); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"authLevel": c.Session().CurrentAuthLevel().String()})
		},
	}
}
