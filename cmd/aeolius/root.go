package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aussiebroadwan/aeolius/internal/client"
	"github.com/aussiebroadwan/aeolius/pkg/aeoliussdk"
	"github.com/aussiebroadwan/aeolius/pkg/slogx"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "AEOLIUS"

var errNotLoggedIn = errors.New("not logged in, run aeolius login first")

// cli holds what every command needs once flags are parsed.
type cli struct {
	v      *viper.Viper
	stderr io.Writer
	logger *slog.Logger

	prefsPath string
	prefs     client.Prefs
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New(), stderr: os.Stderr}

	root := &cobra.Command{
		Use:               "aeolius",
		Short:             "Automatically delete old posts from your Bluesky account",
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}

	f := root.PersistentFlags()
	f.String("prefs", "", "path to the preferences file (default: user config dir)")
	f.String("service", "", "PDS URL (default: saved preference or "+client.DefaultService+")")
	f.String("api", "", "Aeolius manager URL (default: saved preference or "+client.DefaultAPI+")")
	f.String("log-level", "warn", "log level (debug, info, warn, error)")

	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root.AddCommand(
		newLoginCmd(c),
		newStatusCmd(c),
		newConfigCmd(c),
		newDeleteCmd(c),
		newLogoutCmd(c),
		newExportCmd(c),
		newSweepCmd(c),
		newKeygenCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	// Flags() holds the inherited persistent flags once cobra has parsed.
	if err := c.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("could not bind flags: %w", err)
	}

	c.stderr = cmd.ErrOrStderr()
	c.logger = slogx.New(slogx.Config{
		Level:  c.v.GetString("log-level"),
		Format: "text",
		Writer: c.stderr,
	})

	c.prefsPath = c.v.GetString("prefs")
	if c.prefsPath == "" {
		path, err := client.DefaultPrefsPath()
		if err != nil {
			return err
		}
		c.prefsPath = path
	}

	prefs, err := client.LoadPrefs(c.prefsPath)
	if err != nil {
		return err
	}
	if s := c.v.GetString("service"); s != "" {
		prefs.Service = s
	}
	if a := c.v.GetString("api"); a != "" {
		prefs.API = a
	}
	c.prefs = prefs

	c.logger.Debug("preferences loaded", "path", c.prefsPath, "service", prefs.Service, "api", prefs.API)
	return nil
}

// controller returns a controller that forgets the saved password whenever
// the session is dropped. Other failures are returned to the command.
func (c *cli) controller() *client.Controller {
	return client.NewController(aeoliussdk.NewClient(c.prefs.API), c.logger, func(err error, loggedOut bool) {
		if !loggedOut {
			c.logger.Debug("operation failed", "error", err)
			return
		}

		fmt.Fprintf(c.stderr, "You have been logged out: %v\n", err)
		c.prefs.ForgetPassword()
		if err := c.prefs.Save(c.prefsPath); err != nil {
			c.logger.Warn("could not save preferences", "error", err)
		}
	})
}

// signIn logs in with the saved credentials. When the session was created
// but the configuration could not be loaded, the signed in controller is
// returned together with the error.
func (c *cli) signIn(ctx context.Context) (*client.Controller, error) {
	if c.prefs.Username == "" || c.prefs.Password == "" {
		return nil, errNotLoggedIn
	}

	ctrl := c.controller()
	if err := ctrl.Login(ctx, c.prefs.Username, c.prefs.Password, c.prefs.Service); err != nil {
		if ctrl.Snapshot().SignedIn {
			return ctrl, err
		}
		return nil, err
	}
	return ctrl, nil
}

func printStatus(w io.Writer, s client.Snapshot) {
	if !s.SignedIn {
		fmt.Fprintln(w, "Not signed in")
		return
	}

	fmt.Fprintf(w, "Signed in as %s (%s) on %s\n", s.Handle, s.DID, s.Service)
	if s.Avatar != "" {
		fmt.Fprintf(w, "Avatar:   %s\n", s.Avatar)
	}
	if s.Configuration == nil {
		return
	}

	state := "disabled"
	if s.Configuration.Enabled {
		state = "enabled"
	}
	fmt.Fprintf(w, "Deletion: %s, posts older than %d months\n", state, s.Configuration.PostTTL)
}
