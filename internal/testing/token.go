package testing

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TestSecret signs tokens issued by [FakeAPI] and [MustToken].
var TestSecret = []byte("tdx-test-secret")

// SignToken returns an HS256 token carrying sub and email that expires after ttl.
func SignToken(sub, email string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"exp":   time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(TestSecret)
}

// MustToken is [SignToken] with a one hour lifetime that fails the test on error.
func MustToken(t *testing.T, sub, email string) string {
	t.Helper()
	tok, err := SignToken(sub, email, time.Hour)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return tok
}
