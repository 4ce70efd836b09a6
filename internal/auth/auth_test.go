package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmuhq/tmusync/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	a, err := NewAuth("test-secret", time.Hour)
	require.NoError(t, err)

	user := &models.User{ID: 3, Username: "editor1", Role: models.RoleEditor}
	token, err := a.GenerateToken(user)
	require.NoError(t, err)

	claims, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), claims.UserID)
	assert.Equal(t, "editor1", claims.Username)
	assert.Equal(t, models.RoleEditor, claims.Role)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	a, err := NewAuth("secret-a", time.Hour)
	require.NoError(t, err)
	b, err := NewAuth("secret-b", time.Hour)
	require.NoError(t, err)

	token, err := a.GenerateToken(&models.User{ID: 1, Username: "admin", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = b.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpiredRejected(t *testing.T) {
	a, err := NewAuth("test-secret", time.Hour)
	require.NoError(t, err)
	a.expiresIn = -time.Minute

	token, err := a.GenerateToken(&models.User{ID: 1, Username: "admin", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = a.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCheckPermission(t *testing.T) {
	a, err := NewAuth("test-secret", time.Hour)
	require.NoError(t, err)

	assert.True(t, a.CheckPermission(models.RoleAdmin, models.RoleAdmin))
	assert.True(t, a.CheckPermission(models.RoleAdmin, models.RoleEditor))
	assert.True(t, a.CheckPermission(models.RoleEditor, models.RoleEditor))
	assert.False(t, a.CheckPermission(models.RoleEditor, models.RoleAdmin))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cure-Pass!")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cure-Pass!"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("short", 8, false), ErrWeakPassword)
	assert.NoError(t, ValidatePassword("longenough", 8, false))
	assert.ErrorIs(t, ValidatePassword("alllowercase", 8, true), ErrWeakPassword)
	assert.NoError(t, ValidatePassword("Mixed1234", 8, true))
	assert.NoError(t, ValidatePassword("mixed-1234", 8, true))
}
