package session

import (
	"testing"

	"github.com/pscheid92/agromarket/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeAuth(t *testing.T) {
	t.Run("nil response", func(t *testing.T) {
		res := normalizeAuth(nil)
		assert.False(t, res.hasCredentials())
		assert.False(t, res.succeeded())
		assert.False(t, res.explicitlyFailed())
	})

	t.Run("top level wins over nested", func(t *testing.T) {
		res := normalizeAuth(&domain.AuthResponse{
			AccessToken: "top",
			Success:     ptr(true),
			Data: &domain.AuthResponse{
				AccessToken:  "nested",
				RefreshToken: "nested-refresh",
				User:         &domain.User{ID: "u1"},
				Success:      ptr(false),
				Message:      "from data",
			},
		})

		assert.Equal(t, "top", res.accessToken)
		assert.Equal(t, "nested-refresh", res.refreshToken)
		assert.Equal(t, "u1", res.user.ID)
		assert.True(t, res.succeeded())
		assert.Equal(t, "from data", res.message)
		assert.True(t, res.hasCredentials())
	})

	t.Run("user without id is not a credential", func(t *testing.T) {
		res := normalizeAuth(&domain.AuthResponse{AccessToken: "tok", User: &domain.User{Phone: "+37499123456"}})
		assert.False(t, res.hasCredentials())
	})

	t.Run("explicit failure", func(t *testing.T) {
		res := normalizeAuth(&domain.AuthResponse{Data: &domain.AuthResponse{Success: ptr(false)}})
		assert.True(t, res.explicitlyFailed())
		assert.False(t, res.succeeded())
	})
}

func TestStripSpace(t *testing.T) {
	assert.Equal(t, "+37499123456", stripSpace(" +374 99\t123 456\n"))
	assert.Equal(t, "", stripSpace("   "))
}

func TestValidatePhone(t *testing.T) {
	for _, ok := range []string{"+37499123456", "37499123456", "0991234567"} {
		assert.Nil(t, validatePhone(ok), ok)
	}
	for _, bad := range []string{"", "+374", "099-123-456", "phone12345678"} {
		assert.NotNil(t, validatePhone(bad), bad)
	}
}
