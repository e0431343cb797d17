package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:     "login",
	Short:   "Print the identity provider login URL",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		returnTo, _ := cmd.Flags().GetString("return-to")
		target, err := dealClient.LoginURL(cmd.Context(), returnTo)
		if err != nil {
			return fmt.Errorf("resolving login URL: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), target)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "Print the identity provider logout URL",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := dealClient.LogoutURL(cmd.Context())
		if err != nil {
			return fmt.Errorf("resolving logout URL: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), target)
		return nil
	},
}

func init() {
	loginCmd.Flags().String("return-to", "/", "path to come back to after signing in")
}
