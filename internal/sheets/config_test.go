package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	oauth := func(c Config) Config {
		c.ClientID = "test-client"
		c.ClientSecret = "test-secret"
		c.RefreshToken = "test-token"
		return c
	}
	base := Config{BatchSize: 100, RetryAttempts: 3, RetryDelay: time.Second}

	tests := []struct {
		wantErr error
		name    string
		config  Config
	}{
		{
			name:   "valid oauth config",
			config: oauth(base),
		},
		{
			name:   "valid service account config",
			config: Config{ServiceAccountPath: "/path/to/key.json", BatchSize: 100},
		},
		{
			name:    "missing auth",
			config:  base,
			wantErr: ErrNoAuth,
		},
		{
			name: "partial oauth credentials",
			config: Config{
				ClientID:     "test-client",
				RefreshToken: "test-token",
				BatchSize:    100,
			},
			wantErr: ErrNoAuth,
		},
		{
			name: "multiple auth methods",
			config: func() Config {
				c := oauth(base)
				c.ServiceAccountPath = "/path/to/key.json"
				return c
			}(),
			wantErr: ErrMultipleAuth,
		},
		{
			name: "invalid batch size",
			config: func() Config {
				c := oauth(base)
				c.BatchSize = 0
				return c
			}(),
			wantErr: ErrBatchSize,
		},
		{
			name: "negative retry attempts",
			config: func() Config {
				c := oauth(base)
				c.RetryAttempts = -1
				return c
			}(),
			wantErr: ErrRetryAttempts,
		},
		{
			name: "negative retry delay",
			config: func() Config {
				c := oauth(base)
				c.RetryDelay = -time.Second
				return c
			}(),
			wantErr: ErrRetryDelay,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()

	assert.Equal(t, DefaultSpreadsheetName, c.SpreadsheetName)
	assert.Equal(t, 1000, c.BatchSize)
	assert.True(t, c.EnableFormatting)
	assert.ErrorIs(t, c.Validate(), ErrNoAuth)
}
