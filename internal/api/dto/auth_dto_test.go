package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/auth-service/internal/domain"
)

func TestSignupRequestValidate(t *testing.T) {
	valid := SignupRequest{Username: "alice", Email: "alice@example.com", Name: "Alice", Password: "longenough"}
	assert.NoError(t, valid.Validate())

	cases := map[string]SignupRequest{
		"missing username": {Email: "alice@example.com", Name: "Alice", Password: "longenough"},
		"short username":   {Username: "al", Email: "alice@example.com", Name: "Alice", Password: "longenough"},
		"bad email":        {Username: "alice", Email: "not-an-email", Name: "Alice", Password: "longenough"},
		"short password":   {Username: "alice", Email: "alice@example.com", Name: "Alice", Password: "short"},
		"missing name":     {Username: "alice", Email: "alice@example.com", Password: "longenough"},
	}
	for name, req := range cases {
		assert.Error(t, req.Validate(), name)
	}
}

func TestLoginRequestValidate(t *testing.T) {
	assert.NoError(t, LoginRequest{Username: "alice", Password: "pw"}.Validate())
	assert.Error(t, LoginRequest{Password: "pw"}.Validate())
	assert.Error(t, LoginRequest{Username: "alice"}.Validate())
}

func TestPasswordResetRequestsValidate(t *testing.T) {
	assert.NoError(t, PasswordResetRequest{Email: "alice@example.com"}.Validate())
	assert.Error(t, PasswordResetRequest{Email: "nope"}.Validate())

	assert.NoError(t, PasswordResetConfirmRequest{Token: "tok", NewPassword: "longenough"}.Validate())
	assert.Error(t, PasswordResetConfirmRequest{NewPassword: "longenough"}.Validate())
	assert.Error(t, PasswordResetConfirmRequest{Token: "tok", NewPassword: "short"}.Validate())

	assert.NoError(t, PasswordChangeRequest{CurrentPassword: "old", NewPassword: "longenough"}.Validate())
	assert.Error(t, PasswordChangeRequest{NewPassword: "longenough"}.Validate())
}

func TestUserInfoNeverCarriesPasswordMaterial(t *testing.T) {
	user := &domain.User{
		ID:           "id-1",
		Username:     "alice",
		Email:        "alice@example.com",
		Name:         "Alice",
		PasswordHash: "$2a$10$secret-hash",
		Role:         domain.RoleUser,
	}

	info := NewUserInfo(user)
	raw, err := json.Marshal(info)
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "secret-hash")
	assert.NotContains(t, string(raw), "password")
	assert.Contains(t, string(raw), "alice")
}
