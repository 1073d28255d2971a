package security_test

import (
	"testing"
	"time"

	"github.com/Rrens/social-content-generator/internal/security"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	manager := security.NewJWTManager("test-secret-key-with-32-chars!!", "socialgen", nil)

	token, err := manager.GenerateAccessToken("firebase-uid-1", "test@example.com", 15*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "firebase-uid-1", claims.UserID())
	assert.Equal(t, "test@example.com", claims.Email)
}

func TestJWTManager_Expired(t *testing.T) {
	clock := clockwork.NewFakeClock()
	manager := security.NewJWTManager("test-secret-key-with-32-chars!!", "", clock)

	token, err := manager.GenerateAccessToken("u1", "", time.Minute)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = manager.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTManager_WrongSecretOrIssuer(t *testing.T) {
	issuer := security.NewJWTManager("secret-a-secret-a-secret-a-secret", "other", nil)
	token, err := issuer.GenerateAccessToken("u1", "", time.Minute)
	require.NoError(t, err)

	_, err = security.NewJWTManager("secret-b-secret-b-secret-b-secret", "other", nil).ValidateAccessToken(token)
	assert.Error(t, err)

	_, err = security.NewJWTManager("secret-a-secret-a-secret-a-secret", "socialgen", nil).ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTManager_RequiresSubject(t *testing.T) {
	manager := security.NewJWTManager("test-secret-key-with-32-chars!!", "", nil)
	token, err := manager.GenerateAccessToken("", "", time.Minute)
	require.NoError(t, err)

	_, err = manager.ValidateAccessToken(token)
	assert.Error(t, err)
}

func BenchmarkJWTValidation(b *testing.B) {
	manager := security.NewJWTManager("benchmark-secret-key-32-chars!!", "", nil)
	token, _ := manager.GenerateAccessToken("u1", "test@example.com", time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = manager.ValidateAccessToken(token)
	}
}
