package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/aeolius/internal/client"
	"github.com/aussiebroadwan/aeolius/pkg/aeoliussdk"
	"github.com/aussiebroadwan/aeolius/pkg/cryptox"
	"github.com/spf13/cobra"
)

func newLoginCmd(c *cli) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a Bluesky handle and app password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username != "" {
				c.prefs.Username = username
			}
			if password != "" {
				c.prefs.Password = password
			}
			if c.prefs.Username == "" || c.prefs.Password == "" {
				return client.ErrMissingCredentials
			}

			ctrl, err := c.signIn(cmd.Context())
			if ctrl == nil {
				return err
			}

			if saveErr := c.prefs.Save(c.prefsPath); saveErr != nil {
				return errors.Join(err, saveErr)
			}
			printStatus(cmd.OutOrStdout(), ctrl.Snapshot())
			return err
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Bluesky handle or DID")
	cmd.Flags().StringVar(&password, "password", "", "app password (create one in the Bluesky settings)")
	return cmd
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the signed in account and its deletion settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := c.signIn(cmd.Context())
			if errors.Is(err, errNotLoggedIn) {
				printStatus(cmd.OutOrStdout(), client.Snapshot{})
				return nil
			}
			if ctrl == nil {
				return err
			}

			printStatus(cmd.OutOrStdout(), ctrl.Snapshot())
			return err
		},
	}
}

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or change the deletion settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the deletion settings as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := c.signIn(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd, ctrl.Snapshot().Configuration)
		},
	})

	var enabled bool
	var postTTL int
	set := &cobra.Command{
		Use:   "set",
		Short: "Change the deletion settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := c.signIn(cmd.Context())
			if err != nil {
				return err
			}

			b := client.Bind(ctrl)
			defer b.Close()

			if cmd.Flags().Changed("enabled") {
				b.SetEnabled(enabled)
			}
			if cmd.Flags().Changed("post-ttl") {
				b.SetPostTTL(postTTL)
			}
			if err := b.Save(cmd.Context()); err != nil {
				return err
			}

			printStatus(cmd.OutOrStdout(), ctrl.Snapshot())
			return nil
		},
	}
	set.Flags().BoolVar(&enabled, "enabled", false, "delete old posts automatically")
	set.Flags().IntVar(&postTTL, "post-ttl", aeoliussdk.DefaultConfiguration.PostTTL, "delete posts older than this many months")
	cmd.AddCommand(set)

	return cmd
}

func newDeleteCmd(c *cli) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete your data from Aeolius and log out",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("this removes your settings and stored refresh token, pass --yes to confirm")
			}

			ctrl, err := c.signIn(cmd.Context())
			if err != nil {
				return err
			}

			err = ctrl.Delete(cmd.Context())

			c.prefs.ForgetPassword()
			if saveErr := c.prefs.Save(c.prefsPath); saveErr != nil {
				return errors.Join(err, saveErr)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Your data has been deleted and you have been logged out")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved app password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.prefs.ForgetPassword()
			if err := c.prefs.Save(c.prefsPath); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newExportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print everything Aeolius stores about you as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, err := c.signIn(cmd.Context())
			if err != nil {
				return err
			}

			data, err := ctrl.Export()
			if err != nil {
				return err
			}
			return writeJSON(cmd, data)
		},
	}
}

func newSweepCmd(c *cli) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Ask a worker to run a deletion sweep now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			worker := c.v.GetString("worker")
			apiKey := c.v.GetString("api-key")
			if worker == "" || apiKey == "" {
				return errors.New("--worker and --api-key are required")
			}

			sdk := aeoliussdk.NewClient(worker)
			sdk.HTTPClient.Timeout = timeout

			stats, err := sdk.TriggerSweep(cmd.Context(), apiKey)
			if err != nil {
				return err
			}
			return writeJSON(cmd, stats)
		},
	}

	cmd.Flags().String("worker", "http://localhost:1338", "Aeolius worker URL")
	cmd.Flags().String("api-key", "", "worker API key")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Hour, "how long to wait for the sweep")
	return cmd
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a random master key or worker API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := cryptox.GenerateToken(cryptox.TokenSize256)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
