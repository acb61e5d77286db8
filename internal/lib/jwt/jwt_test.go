package jwt

import (
	"testing"
	"time"

	"boltvault/internal/domain/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken_ParseToken(t *testing.T) {
	user := models.User{ID: uuid.New(), Email: "vault@example.com"}

	token, exp, err := NewToken(user, "secret", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	sess, err := ParseToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, sess.UserID)
	assert.Equal(t, user.Email, sess.Email)
	assert.Equal(t, token, sess.Token)
}

func TestParseToken_Invalid(t *testing.T) {
	user := models.User{ID: uuid.New(), Email: "vault@example.com"}

	token, _, err := NewToken(user, "secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, "other-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, _, err := NewToken(user, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(expired, "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken("garbage", "secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
