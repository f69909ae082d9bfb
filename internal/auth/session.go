// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the cookie carrying the signed token.
const CookieName = "auth_token"

// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// privateKey and publicKey are used for signing and verifying JWT tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// TokenExpireSec is how many seconds a token stays valid (0 => never).
	TokenExpireSec int
)

// ParseExpireTime converts a TOKEN_EXPIRE_TIME value ("never", "0", "", or a Go duration) to seconds.
func ParseExpireTime(duration string) (int, error) {
	if duration == "never" || duration == "0" || duration == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(duration)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return int(d.Seconds()), nil
}

// Init generates a fresh ed25519 key pair at runtime and sets the token expiration
// from TOKEN_EXPIRE_TIME.
func Init() error {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	exp, err := ParseExpireTime(os.Getenv("TOKEN_EXPIRE_TIME"))
	if err != nil {
		return err
	}
	privateKey, publicKey, TokenExpireSec = priv, pub, exp
	return nil
}

// InitFromPath reads raw ed25519 private/public keys from file, so tokens survive restarts.
func InitFromPath(privatePath, publicPath string) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return fmt.Errorf("unexpected ed25519 key sizes %d/%d", len(privateKeyData), len(publicKeyData))
	}
	exp, err := ParseExpireTime(os.Getenv("TOKEN_EXPIRE_TIME"))
	if err != nil {
		return err
	}

	privateKey = ed25519.PrivateKey(privateKeyData)
	publicKey = ed25519.PublicKey(publicKeyData)
	TokenExpireSec = exp
	return nil
}

// CreateJWT creates a signed JWT token with "sub" = userID. Guest tokens carry "guest": true.
func CreateJWT(userID uuid.UUID, guest bool) (string, error) {
	if privateKey == nil {
		return "", errors.New("auth keys not initialized")
	}
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"iat": time.Now().Unix(),
	}
	if guest {
		claims["guest"] = true
	}
	if TokenExpireSec > 0 {
		claims["exp"] = time.Now().Add(time.Duration(TokenExpireSec) * time.Second).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateJWT verifies a JWT string and returns the user ID from "sub".
func AuthenticateJWT(tokenString string) (uuid.UUID, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed sub: %v", ErrInvalidToken, err)
	}
	return id, nil
}
