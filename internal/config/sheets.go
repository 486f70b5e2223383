package config

import (
	"log/slog"
	"os"

	"github.com/Veraticus/the-bills-must-flow/internal/sheets"
	"github.com/spf13/viper"
)

// LoadSheetsConfig loads Google Sheets configuration with this precedence:
// 1. viper (config file or BILLS_SHEETS_* env vars)
// 2. direct environment variables (GOOGLE_SHEETS_*)
// 3. the refresh token saved by `bills auth sheets`
// 4. defaults
func LoadSheetsConfig() (*sheets.Config, error) {
	config := sheets.DefaultConfig()

	config.ServiceAccountPath = ExpandPath(firstNonEmpty(
		viper.GetString("sheets.service_account_path"),
		os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")))
	config.ClientID = firstNonEmpty(viper.GetString("sheets.client_id"), os.Getenv("GOOGLE_SHEETS_CLIENT_ID"))
	config.ClientSecret = firstNonEmpty(viper.GetString("sheets.client_secret"), os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET"))
	config.RefreshToken = firstNonEmpty(viper.GetString("sheets.refresh_token"), os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN"))
	config.SpreadsheetID = firstNonEmpty(viper.GetString("sheets.spreadsheet_id"), os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"))
	config.SpreadsheetName = firstNonEmpty(
		viper.GetString("sheets.spreadsheet_name"),
		os.Getenv("GOOGLE_SHEETS_SPREADSHEET_NAME"),
		config.SpreadsheetName)
	config.TokenFile = ExpandPath(firstNonEmpty(viper.GetString("sheets.token_file"), DefaultTokenPath()))
	if tz := viper.GetString("sheets.timezone"); tz != "" {
		config.TimeZone = tz
	}

	if config.RefreshToken == "" && config.ServiceAccountPath == "" && config.TokenFile != "" {
		if token, err := sheets.LoadToken(config.TokenFile); err == nil {
			config.RefreshToken = token.RefreshToken
		} else if !os.IsNotExist(err) {
			slog.Warn("Ignoring unreadable token file", "file", config.TokenFile, "error", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
