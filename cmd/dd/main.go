// Command dd is the dealdesk CLI: it serves the API and talks to it.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/dealdesk/internal/client"
	"github.com/alfredjeanlab/dealdesk/internal/config"
	"github.com/alfredjeanlab/dealdesk/internal/ui"
)

const defaultServerURL = "http://localhost:8080"

var (
	serverURL  string
	token      string
	jsonOutput bool
	noColor    bool
	actor      string

	clientCfg  *config.ClientConfig
	dealClient client.DealClient
)

func defaultActor() string {
	out, err := exec.Command("git", "config", "user.name").Output()
	if err == nil {
		if name := strings.TrimSpace(string(out)); name != "" {
			return name
		}
	}
	return ""
}

// resolveConnection picks the server URL and token: flags win, then the
// environment, then the active remote.
func resolveConnection(cmd *cobra.Command, cfg *config.ClientConfig) (string, string) {
	url, tok := serverURL, token
	if !cmd.Flags().Changed("server") {
		switch {
		case cfg.URL != "":
			url = cfg.URL
		case activeRemote().URL != "":
			url = activeRemote().URL
		}
	}
	if !cmd.Flags().Changed("token") {
		switch {
		case cfg.Token != "":
			tok = cfg.Token
		case activeRemote().Token != "":
			tok = activeRemote().Token
		}
	}
	return url, tok
}

var rootCmd = &cobra.Command{
	Use:           "dd <command>",
	Short:         "Track M&A mandates from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor || !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		cfg, err := config.LoadClient()
		if err != nil {
			return err
		}
		clientCfg = cfg
		if !cmd.Flags().Changed("actor") && cfg.Actor != "" {
			actor = cfg.Actor
		}
		url, tok := resolveConnection(cmd, cfg)
		dealClient = client.NewHTTPClient(url, client.WithToken(tok))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dealClient != nil {
			dealClient.Close()
		}
	},
}

// skipClient is used as PersistentPreRunE by commands that never reach the API.
func skipClient(cmd *cobra.Command, args []string) error {
	if noColor || !ui.ShouldUseColor() {
		ui.ForceNoColor()
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL, "dealdesk server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colour output")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", defaultActor(), "author of logged interactions")

	rootCmd.AddGroup(
		&cobra.Group{ID: "dossiers", Title: "Dossiers:"},
		&cobra.Group{ID: "followup", Title: "Follow-up:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Dossiers
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(companyCmd)

	// Follow-up
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(remindersCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(watchCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(exportCmd)
}

// errReported marks a failure the user has already been shown through a
// notification; main exits non-zero without printing it again.
var errReported = errors.New("already reported")

func reported(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", errReported, err)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, ui.RenderError("Error:"), err)
		}
		os.Exit(1)
	}
}
