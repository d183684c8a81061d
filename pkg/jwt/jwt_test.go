package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateAccessToken(t *testing.T) {
	service := NewService("test-secret", time.Hour)
	userID := uuid.New()

	token, err := service.GenerateAccessToken(userID, "frontdesk", []string{"staff"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "frontdesk", claims.UserName)
	assert.Equal(t, []string{"staff"}, claims.Roles)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestValidateAccessToken(t *testing.T) {
	service := NewService("test-secret", time.Hour)

	t.Run("Wrong Secret", func(t *testing.T) {
		other := NewService("other-secret", time.Hour)
		token, err := other.GenerateAccessToken(uuid.New(), "alex", []string{"player"})
		require.NoError(t, err)

		claims, err := service.ValidateAccessToken(token)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("Garbage Token", func(t *testing.T) {
		claims, err := service.ValidateAccessToken("not.a.token")
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("Expired Token", func(t *testing.T) {
		expired := NewService("test-secret", -time.Minute)
		token, err := expired.GenerateAccessToken(uuid.New(), "alex", []string{"player"})
		require.NoError(t, err)

		claims, err := service.ValidateAccessToken(token)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})
}

func TestIsTokenExpired(t *testing.T) {
	service := NewService("test-secret", time.Hour)

	t.Run("Fresh Token", func(t *testing.T) {
		token, err := service.GenerateAccessToken(uuid.New(), "alex", []string{"player"})
		require.NoError(t, err)
		assert.False(t, service.IsTokenExpired(token))
	})

	t.Run("Expired Token", func(t *testing.T) {
		expired := NewService("test-secret", -time.Minute)
		token, err := expired.GenerateAccessToken(uuid.New(), "alex", []string{"player"})
		require.NoError(t, err)
		assert.True(t, service.IsTokenExpired(token))
	})

	t.Run("Garbage Token", func(t *testing.T) {
		assert.True(t, service.IsTokenExpired("junk"))
	})
}
