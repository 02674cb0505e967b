package security

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/omq/mealsync/internal/infrastructure/config"
	"github.com/omq/mealsync/internal/infrastructure/persistence/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type AuthServiceTestSuite struct {
	suite.Suite
	cache *memory.CacheRepository
	auth  *AuthService
	clock time.Time
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.cache = memory.NewCacheRepository(0)
	auth, err := NewAuthService(config.AuthConfig{
		JWTSecret:     "test-secret-key-for-testing-only-32-bytes",
		JWTExpiration: time.Hour,
		Issuer:        "mealsync",
	}, suite.cache, zap.NewNop())
	require.NoError(suite.T(), err)
	suite.clock = time.Now()
	auth.now = func() time.Time { return suite.clock }
	suite.auth = auth
}

func (suite *AuthServiceTestSuite) TearDownTest() {
	suite.cache.Close()
}

func (suite *AuthServiceTestSuite) TestIssueAndParse() {
	issued, err := suite.auth.IssueToken("user-1", "a@example.com")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.clock.Add(time.Hour), issued.ExpiresAt)

	s, claims, err := suite.auth.ParseToken(context.Background(), issued.Token)

	require.NoError(suite.T(), err)
	assert.True(suite.T(), s.Authenticated())
	assert.Equal(suite.T(), "user-1", s.UserID())
	assert.Equal(suite.T(), "a@example.com", s.Email())
	assert.Equal(suite.T(), "user-1", claims.Subject)
	assert.NotEmpty(suite.T(), claims.ID)
}

func (suite *AuthServiceTestSuite) TestIssueToken_MissingUser() {
	_, err := suite.auth.IssueToken("  ", "")
	assert.ErrorIs(suite.T(), err, ErrMissingUser)
}

func (suite *AuthServiceTestSuite) TestParseToken_Rejections() {
	suite.Run("Expired", func() {
		issued, err := suite.auth.IssueToken("user-1", "")
		require.NoError(suite.T(), err)
		suite.clock = suite.clock.Add(2 * time.Hour)

		s, _, err := suite.auth.ParseToken(context.Background(), issued.Token)

		assert.ErrorIs(suite.T(), err, ErrInvalidToken)
		assert.False(suite.T(), s.Authenticated())
	})

	suite.Run("WrongSecret", func() {
		other, err := NewAuthService(config.AuthConfig{JWTSecret: "another-secret", JWTExpiration: time.Hour, Issuer: "mealsync"}, nil, zap.NewNop())
		require.NoError(suite.T(), err)
		issued, err := other.IssueToken("user-1", "")
		require.NoError(suite.T(), err)

		_, _, err = suite.auth.ParseToken(context.Background(), issued.Token)

		assert.ErrorIs(suite.T(), err, ErrInvalidToken)
	})

	suite.Run("UnsignedAlgorithm", func() {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "user-1"})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(suite.T(), err)

		_, _, err = suite.auth.ParseToken(context.Background(), signed)

		assert.ErrorIs(suite.T(), err, ErrInvalidToken)
	})

	suite.Run("Garbage", func() {
		_, _, err := suite.auth.ParseToken(context.Background(), "not-a-token")
		assert.ErrorIs(suite.T(), err, ErrInvalidToken)
	})
}

func (suite *AuthServiceTestSuite) TestRevoke() {
	issued, err := suite.auth.IssueToken("user-1", "")
	require.NoError(suite.T(), err)
	_, claims, err := suite.auth.ParseToken(context.Background(), issued.Token)
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.auth.Revoke(context.Background(), claims))

	_, _, err = suite.auth.ParseToken(context.Background(), issued.Token)
	assert.ErrorIs(suite.T(), err, ErrTokenRevoked)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func TestNewAuthService_GeneratesSecretWhenUnset(t *testing.T) {
	auth, err := NewAuthService(config.AuthConfig{JWTExpiration: time.Minute, Issuer: "mealsync"}, nil, zap.NewNop())
	require.NoError(t, err)

	issued, err := auth.IssueToken("user-1", "")
	require.NoError(t, err)
	s, _, err := auth.ParseToken(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", s.UserID())
}
