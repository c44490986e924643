package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-booking-api/internal/models"
	appErrors "github.com/noah-isme/hostel-booking-api/pkg/errors"
)

type authServiceStub struct {
	req models.LoginRequest
	res *models.LoginResponse
	err error
}

func (s *authServiceStub) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	s.req = req
	return s.res, s.err
}

func TestAuthHandlerLogin(t *testing.T) {
	stub := &authServiceStub{res: &models.LoginResponse{AccessToken: "token", ExpiresIn: 900}}
	h := NewAuthHandler(stub)

	c, w := newTestContext(http.MethodPost, "/auth/login", `{"email":"ama@example.com","password":"secret"}`, nil)
	c.Request.Header.Set("User-Agent", "test-agent")
	h.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ama@example.com", stub.req.Email)
	assert.Equal(t, "test-agent", stub.req.UserAgent)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"access_token":"token"`)
}

func TestAuthHandlerLoginErrors(t *testing.T) {
	t.Run("malformed body", func(t *testing.T) {
		h := NewAuthHandler(&authServiceStub{})
		c, w := newTestContext(http.MethodPost, "/auth/login", `{"email":`, nil)
		h.Login(c)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, w).Error.Code)
	})

	t.Run("bad credentials", func(t *testing.T) {
		h := NewAuthHandler(&authServiceStub{err: appErrors.Clone(appErrors.ErrUnauthorized, "invalid credentials")})
		c, w := newTestContext(http.MethodPost, "/auth/login", `{"email":"ama@example.com","password":"nope"}`, nil)
		h.Login(c)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthHandlerMe(t *testing.T) {
	h := NewAuthHandler(&authServiceStub{})

	c, w := newTestContext(http.MethodGet, "/auth/me", "", custodian())
	h.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"custodian-1"`)

	c, w = newTestContext(http.MethodGet, "/auth/me", "", nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
