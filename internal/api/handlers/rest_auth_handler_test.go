package handlers_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SaadNasir-Drago/Zolo/internal/api/handlers"
	"github.com/SaadNasir-Drago/Zolo/internal/auth"
	"github.com/SaadNasir-Drago/Zolo/internal/models"
	"github.com/SaadNasir-Drago/Zolo/internal/services"
)

func setupAuthRouter(userSvc *MockUserService) http.Handler {
	h := handlers.NewRestAuthHandler(testConfig(), userSvc)
	r := newEngine()
	r.POST("/api/auth/register", h.Register)
	r.POST("/api/auth/login", h.Login)
	return r
}

func TestRestAuthHandler_Register(t *testing.T) {
	body := map[string]string{"firstname": "Ann", "lastname": "Lee", "email": "ann@zolo.test", "password": "secret1"}

	t.Run("success", func(t *testing.T) {
		userSvc := new(MockUserService)
		userSvc.On("Register", mock.Anything, "Ann", "Lee", "ann@zolo.test", "secret1").Return(&models.User{Base: models.NewBase()}, nil)

		w := doRequest(t, setupAuthRouter(userSvc), http.MethodPost, "/api/auth/register", body, "")

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "User registered successfully", decode(t, w)["message"])
		userSvc.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		userSvc := new(MockUserService)
		userSvc.On("Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, services.ErrEmailExists)

		w := doRequest(t, setupAuthRouter(userSvc), http.MethodPost, "/api/auth/register", body, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "User already exists", decode(t, w)["message"])
	})

	t.Run("short password reported by field", func(t *testing.T) {
		userSvc := new(MockUserService)
		userSvc.On("Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, services.NewValidationError("password", "Password must be at least 6 characters"))

		w := doRequest(t, setupAuthRouter(userSvc), http.MethodPost, "/api/auth/register", body, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{"password"}, fieldErrors(t, w))
	})

	t.Run("missing fields", func(t *testing.T) {
		userSvc := new(MockUserService)
		w := doRequest(t, setupAuthRouter(userSvc), http.MethodPost, "/api/auth/register", map[string]string{"email": "nope"}, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.ElementsMatch(t, []string{"firstname", "lastname", "email", "password"}, fieldErrors(t, w))
		userSvc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRestAuthHandler_Login(t *testing.T) {
	body := map[string]string{"email": "ann@zolo.test", "password": "secret1"}

	t.Run("success returns token and cookie", func(t *testing.T) {
		user := &models.User{Base: models.NewBase(), Firstname: "Ann", Email: "ann@zolo.test", PasswordHash: "hash"}
		userSvc := new(MockUserService)
		userSvc.On("Authenticate", mock.Anything, "ann@zolo.test", "secret1").Return(user, nil)

		w := doRequest(t, setupAuthRouter(userSvc), http.MethodPost, "/api/auth/login", body, "")

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode(t, w)
		assert.Equal(t, "Login successful", resp["message"])

		token, _ := resp["accessToken"].(string)
		identity, err := auth.ValidateJWT(token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, user.ID.Hex(), identity.UserID)

		respUser := resp["user"].(map[string]interface{})
		assert.NotContains(t, respUser, "password")
		assert.Equal(t, user.ID.Hex(), respUser["_id"])

		cookie := w.Result().Cookies()
		require.Len(t, cookie, 1)
		assert.Equal(t, "token", cookie[0].Name)
		assert.True(t, cookie[0].HttpOnly)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		userSvc := new(MockUserService)
		userSvc.On("Authenticate", mock.Anything, mock.Anything, mock.Anything).Return(nil, services.ErrAuth)

		w := doRequest(t, setupAuthRouter(userSvc), http.MethodPost, "/api/auth/login", body, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid credentials", decode(t, w)["message"])
	})

	t.Run("store failure is not leaked", func(t *testing.T) {
		userSvc := new(MockUserService)
		userSvc.On("Authenticate", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("socket closed"))

		w := doRequest(t, setupAuthRouter(userSvc), http.MethodPost, "/api/auth/login", body, "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "socket closed")
	})
}
