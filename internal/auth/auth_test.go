package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/oafund/internal/model"
	"github.com/theirongolddev/oafund/internal/store"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	salt, key, ok := strings.Cut(hash, ":")
	require.True(t, ok)
	assert.Len(t, salt, saltLen*2)
	assert.Len(t, key, scryptKeyLen*2)

	assert.True(t, VerifyPassword(hash, "correct horse"))
	assert.False(t, VerifyPassword(hash, "wrong horse"))

	other, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salts must differ")

	_, err = HashPassword("")
	assert.Error(t, err)
}

func TestVerifyMalformed(t *testing.T) {
	for _, stored := range []string{"", "nocolon", "zz:00", "00:zz", "00:"} {
		assert.False(t, VerifyPassword(stored, "x"), "stored=%q", stored)
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	_, err := NewIssuer("", time.Hour)
	assert.Error(t, err)
}

func TestIssueAndParse(t *testing.T) {
	iss, err := NewIssuer("s3cret", time.Hour)
	require.NoError(t, err)

	tok, exp, err := iss.Issue("staff")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "staff", claims.Subject)
	assert.NotEmpty(t, claims.ID)

	other, err := NewIssuer("different", time.Hour)
	require.NoError(t, err)
	_, err = other.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.Parse("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseExpired(t *testing.T) {
	iss, err := NewIssuer("s3cret", time.Minute)
	require.NoError(t, err)
	iss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, _, err := iss.Issue("staff")
	require.NoError(t, err)

	iss.now = time.Now
	_, err = iss.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsNoneAlg(t *testing.T) {
	iss, err := NewIssuer("s3cret", time.Hour)
	require.NoError(t, err)

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "staff",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = iss.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogin(t *testing.T) {
	st, err := store.Open(t.TempDir() + "/auth.db")
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	ctx := context.Background()

	hash, err := HashPassword("pw")
	require.NoError(t, err)
	require.NoError(t, st.PutCredential(ctx, model.Credential{ID: "staff", PasswordHash: hash}))

	iss, err := NewIssuer("s3cret", 0)
	require.NoError(t, err)

	tok, _, err := iss.Login(ctx, st, "staff", "pw")
	require.NoError(t, err)
	claims, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "staff", claims.Subject)

	_, _, err = iss.Login(ctx, st, "staff", "nope")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, _, err = iss.Login(ctx, st, "ghost", "pw")
	assert.ErrorIs(t, err, ErrBadCredentials)
}
