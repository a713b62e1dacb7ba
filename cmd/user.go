package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/oafund/internal/auth"
	"github.com/theirongolddev/oafund/internal/model"
)

var flagUserPassword string

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage staff logins for the API",
}

var userAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Create a staff login or reset its password",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List staff logins",
	RunE:  runUserList,
}

var userTokenCmd = &cobra.Command{
	Use:   "token <id>",
	Short: "Issue an API token for an existing login",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserToken,
}

func init() {
	userAddCmd.Flags().StringVar(&flagUserPassword, "password", "", "Password (prompted when omitted)")
	userCmd.AddCommand(userAddCmd, userListCmd, userTokenCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	password := flagUserPassword
	if password == "" {
		var confirm string
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Password for "+args[0]).
				EchoMode(huh.EchoModePassword).
				Value(&password),
			huh.NewInput().
				Title("Repeat password").
				EchoMode(huh.EchoModePassword).
				Value(&confirm),
		))
		if err := form.Run(); err != nil {
			return err
		}
		if password != confirm {
			return errors.New("passwords do not match")
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.PutCredential(cmd.Context(), model.Credential{ID: args[0], PasswordHash: hash}); err != nil {
		return err
	}
	a.log.WithField("id", args[0]).Info("staff login stored")
	fmt.Printf("  Saved login %q\n", args[0])
	return nil
}

func runUserList(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := a.store.ListCredentials(cmd.Context())
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("\n  No staff logins. Add one with `oafund user add <id>`.")
		return nil
	}
	for _, id := range ids {
		fmt.Printf("  %s\n", id)
	}
	return nil
}

func runUserToken(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.store.GetCredential(cmd.Context(), args[0]); err != nil {
		return err
	}
	issuer, err := auth.NewIssuer(a.cfg.Auth.JWTSecret, a.cfg.TokenTTL())
	if err != nil {
		return err
	}
	tok, exp, err := issuer.Issue(args[0])
	if err != nil {
		return err
	}
	fmt.Println(tok)
	a.log.WithField("expires", exp).Debug("token issued")
	return nil
}
