package auth

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the tests fast
var testParams = &HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := CreateHash("hunter2", testParams)
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$v=19$m=1024,t=1,p=1$")

	ok, err := ComparePasswordAndHash("hunter2", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ComparePasswordAndHash("hunter3", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashesAreSalted(t *testing.T) {
	a, err := CreateHash("same", testParams)
	require.NoError(t, err)
	b, err := CreateHash("same", testParams)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCreateHashRejectsEmpty(t *testing.T) {
	_, err := CreateHash("", testParams)
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestDecodeHashErrors(t *testing.T) {
	_, _, _, err := DecodeHash("plaintext")
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, _, _, err = DecodeHash("$argon2id$v=18$m=1,t=1,p=1$AAAA$AAAA")
	assert.ErrorIs(t, err, ErrIncompatibleVersion)

	_, _, _, err = DecodeHash("$argon2id$v=19$m=1,t=1,p=1$!!!$AAAA")
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, err = ComparePasswordAndHash("x", "$bcrypt$v=19$m=1,t=1,p=1$AAAA$AAAA")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestParseExpireTime(t *testing.T) {
	for _, in := range []string{"", "0", "never"} {
		sec, err := ParseExpireTime(in)
		require.NoError(t, err)
		assert.Zero(t, sec)
	}
	sec, err := ParseExpireTime("72h")
	require.NoError(t, err)
	assert.Equal(t, 72*3600, sec)

	_, err = ParseExpireTime("soon")
	assert.Error(t, err)
}

func TestJWTRoundTrip(t *testing.T) {
	t.Setenv("TOKEN_EXPIRE_TIME", "1h")
	require.NoError(t, Init())
	assert.Equal(t, 3600, TokenExpireSec)

	id := uuid.New()
	token, err := CreateJWT(id, true)
	require.NoError(t, err)

	got, err := AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestAuthenticateJWTRejectsForeignKey(t *testing.T) {
	require.NoError(t, Init())
	token, err := CreateJWT(uuid.New(), false)
	require.NoError(t, err)

	// rotating keys invalidates earlier tokens
	require.NoError(t, Init())
	_, err = AuthenticateJWT(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = AuthenticateJWT("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestInitFromPath(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	dir := t.TempDir()
	privPath := filepath.Join(dir, "key")
	pubPath := filepath.Join(dir, "key.pub")
	require.NoError(t, os.WriteFile(privPath, priv, 0o600))
	require.NoError(t, os.WriteFile(pubPath, pub, 0o644))

	require.NoError(t, InitFromPath(privPath, pubPath))
	id := uuid.New()
	token, err := CreateJWT(id, false)
	require.NoError(t, err)
	got, err := AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	assert.Error(t, InitFromPath(pubPath, pubPath))
	assert.Error(t, InitFromPath(filepath.Join(dir, "missing"), pubPath))
}
