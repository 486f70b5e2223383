package main

import (
	"fmt"
	"os"

	"github.com/Veraticus/the-bills-must-flow/internal/cli"
	"github.com/Veraticus/the-bills-must-flow/internal/common"
	"github.com/Veraticus/the-bills-must-flow/internal/config"
	"github.com/Veraticus/the-bills-must-flow/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
	}

	cmd.AddCommand(authSheetsCmd())

	return cmd
}

func authSheetsCmd() *cobra.Command {
	var callbackAddr string

	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Authorize Google Sheets export",
		Long: `Run the OAuth2 consent flow for Google Sheets and save the refresh token.

Requires an OAuth2 client ID and secret for a desktop app, set as
sheets.client_id / sheets.client_secret or GOOGLE_SHEETS_CLIENT_ID /
GOOGLE_SHEETS_CLIENT_SECRET.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clientID := firstSet(viper.GetString("sheets.client_id"), os.Getenv("GOOGLE_SHEETS_CLIENT_ID"))
			clientSecret := firstSet(viper.GetString("sheets.client_secret"), os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET"))
			if clientID == "" || clientSecret == "" {
				return common.NewUserError("Set sheets.client_id and sheets.client_secret first", common.ErrMissingConfig)
			}

			tokenFile := config.ExpandPath(firstSet(viper.GetString("sheets.token_file"), config.DefaultTokenPath()))

			if _, err := sheets.AuthenticateOAuth2Interactive(cmd.Context(), sheets.OAuth2Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				TokenFile:    tokenFile,
				CallbackAddr: callbackAddr,
			}, cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("google sheets authorization failed: %w", err)
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Google Sheets authorized; token saved to "+tokenFile))
			return err
		},
	}

	cmd.Flags().StringVar(&callbackAddr, "callback-addr", sheets.DefaultCallbackAddr, "address for the local OAuth2 callback server")

	return cmd
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
