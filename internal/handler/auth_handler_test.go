package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyalay/vidyalay-api/internal/middleware"
	"github.com/vidyalay/vidyalay-api/internal/models"
	appErrors "github.com/vidyalay/vidyalay-api/pkg/errors"
)

type fakeAuthSrv struct {
	loginResp *models.LoginResponse
	loginErr  error
	info      *models.UserInfo
}

func (f *fakeAuthSrv) Login(context.Context, *models.LoginRequest) (*models.LoginResponse, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeAuthSrv) Me(context.Context, *models.JWTClaims) (*models.UserInfo, error) {
	return f.info, nil
}

func TestAuthHandlerLoginSuccess(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{loginResp: &models.LoginResponse{AccessToken: "token-1", ExpiresIn: 3600}})

	c, rec := testContext(t, http.MethodPost, "/auth/login", `{"email":"t@school.in","password":"secret"}`)
	handler.Login(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "token-1", envelope.Data["access_token"])
}

func TestAuthHandlerLoginRejectsInvalidCredentials(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{loginErr: appErrors.ErrInvalidCredentials})

	c, rec := testContext(t, http.MethodPost, "/auth/login", `{"email":"t@school.in","password":"wrong"}`)
	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerLoginRejectsBadBody(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{})

	c, rec := testContext(t, http.MethodPost, "/auth/login", `{bad`)
	handler.Login(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{info: &models.UserInfo{ID: "user-1", FullName: "Meera Sharma"}})

	c, rec := testContext(t, http.MethodGet, "/auth/me", "")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1"})

	handler.Me(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Meera Sharma", envelope.Data["full_name"])
}

func TestAuthHandlerMeUnauthenticated(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{})

	c, rec := testContext(t, http.MethodGet, "/auth/me", "")
	handler.Me(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
