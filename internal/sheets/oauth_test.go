package sheets

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}

	require.NoError(t, SaveToken(path, token))

	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "refresh", loaded.RefreshToken)
	assert.Equal(t, "access", loaded.AccessToken)

	_, err = LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantCode   string
		wantStatus int
		wantErr    bool
	}{
		{name: "code received", query: "?state=s1&code=abc", wantStatus: http.StatusOK, wantCode: "abc"},
		{name: "state mismatch", query: "?state=other&code=abc", wantStatus: http.StatusBadRequest},
		{name: "denied", query: "?state=s1&error=access_denied", wantStatus: http.StatusBadRequest, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codes := make(chan string, 1)
			errs := make(chan error, 1)
			rec := httptest.NewRecorder()

			callbackHandler("s1", codes, errs).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			select {
			case code := <-codes:
				assert.Equal(t, tt.wantCode, code)
			default:
				assert.Empty(t, tt.wantCode)
			}
			select {
			case err := <-errs:
				assert.True(t, tt.wantErr)
				assert.Contains(t, err.Error(), "access_denied")
			default:
				assert.False(t, tt.wantErr)
			}
		})
	}
}
