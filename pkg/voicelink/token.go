package voicelink

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Socket-layer bearer tokens. Auth lives below the streaming engine; this
// mirrors the deployment where the socket endpoint expects a short-lived
// HS256 token signed with the shared API key.

const tokenExpiryMs = 10 * 60 * 1000

// MintSocketToken creates a short-lived bearer token from VOICELINK_API_KEY.
func MintSocketToken() (*SocketToken, error) {
	apiKey := os.Getenv("VOICELINK_API_KEY")
	if apiKey == "" {
		return nil, NewStreamError("VOICELINK_API_KEY not set", ErrCodeTokenFailed)
	}

	expiresAt := time.Now().UnixMilli() + tokenExpiryMs
	claims := jwt.MapClaims{
		"exp": expiresAt / 1000,
	}
	if clientID := os.Getenv("VOICELINK_CLIENT_ID"); clientID != "" {
		claims["client_id"] = clientID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(apiKey))
	if err != nil {
		return nil, WrapError(err, ErrCodeTokenFailed)
	}

	return &SocketToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// IsTokenExpired reports whether the token's expiry has passed.
func IsTokenExpired(token *SocketToken) bool {
	return time.Now().UnixMilli() > token.ExpiresAt
}
