package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/SaadNasir-Drago/Zolo/internal/api/middleware"
	"github.com/SaadNasir-Drago/Zolo/internal/auth"
	"github.com/SaadNasir-Drago/Zolo/internal/config"
)

const testSecret = "test-secret"

func testConfig() *config.Config {
	return &config.Config{
		JwtSecret:      testSecret,
		JwtTTL:         time.Hour,
		AuthCookieName: "token",
		DefaultLocale:  "en-US",
		Environment:    "test",
	}
}

var tokenSource = middleware.TokenSource{CookieName: "token"}

func requireAuth() gin.HandlerFunc {
	return middleware.AuthMiddleware(testSecret, tokenSource)
}

func optionalAuth() gin.HandlerFunc {
	return middleware.OptionalAuth(testSecret, tokenSource)
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func tokenFor(t *testing.T, userID primitive.ObjectID) string {
	token, err := auth.GenerateJWT(userID.Hex(), "user@zolo.test", testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

// doRequest sends body as JSON; token may be empty.
func doRequest(t *testing.T, r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// fieldErrors returns the field names of a 400 {errors:[...]} body.
func fieldErrors(t *testing.T, w *httptest.ResponseRecorder) []string {
	var out struct {
		Errors []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	fields := make([]string, 0, len(out.Errors))
	for _, e := range out.Errors {
		fields = append(fields, e.Field)
	}
	return fields
}
