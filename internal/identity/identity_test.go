package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aanand-mishra/student-dashboard/internal/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	testIssuer = "test-issuer"
)

func mustToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func baseClaims(admin any) jwt.MapClaims {
	claims := jwt.MapClaims{
		"sub":   "user-1",
		"email": "alice@example.com",
		"iss":   testIssuer,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	if admin != nil {
		claims["admin"] = admin
	}
	return claims
}

func TestVerifierReadsAdminClaim(t *testing.T) {
	v := NewHMACVerifier(testSecret, testIssuer, "", "admin")

	claims, err := v.Verify(mustToken(t, baseClaims(true)))
	require.NoError(t, err)
	assert.True(t, claims.Admin)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)

	claims, err = v.Verify(mustToken(t, baseClaims(nil)))
	require.NoError(t, err)
	assert.False(t, claims.Admin)

	// Only a real boolean counts.
	claims, err = v.Verify(mustToken(t, baseClaims("true")))
	require.NoError(t, err)
	assert.False(t, claims.Admin)
}

func TestVerifierRejects(t *testing.T) {
	v := NewHMACVerifier(testSecret, testIssuer, "", "admin")

	wrongIssuer := baseClaims(true)
	wrongIssuer["iss"] = "someone-else"
	_, err := v.Verify(mustToken(t, wrongIssuer))
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := baseClaims(true)
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	_, err = v.Verify(mustToken(t, expired))
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExp := baseClaims(true)
	delete(noExp, "exp")
	_, err = v.Verify(mustToken(t, noExp))
	assert.ErrorIs(t, err, ErrInvalidToken)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, baseClaims(true)).SignedString([]byte("other"))
	require.NoError(t, err)
	_, err = v.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRSAVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	v, err := NewRSAVerifier(pubPEM, testIssuer, "", "admin")
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, baseClaims(true)).SignedString(key)
	require.NoError(t, err)
	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.True(t, claims.Admin)

	// An HS256 token must not pass an RS256 verifier.
	_, err = v.Verify(mustToken(t, baseClaims(true)))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func newProvider(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/v1", "key-123", srv.URL+"/revoke", 2*time.Second,
		NewHMACVerifier(testSecret, testIssuer, "", "admin"))
}

func TestSignIn(t *testing.T) {
	token := mustToken(t, baseClaims(true))
	c := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts:signInWithPassword", r.URL.Path)
		assert.Equal(t, "key-123", r.URL.Query().Get("key"))

		var req passwordRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice@example.com", req.Email)
		assert.True(t, req.ReturnSecureToken)

		_ = json.NewEncoder(w).Encode(tokenResponse{
			LocalID: "user-1", Email: req.Email, IDToken: token, RefreshToken: "refresh-1", ExpiresIn: "3600",
		})
	})

	session, err := c.SignIn(context.Background(), "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.True(t, session.Admin)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "refresh-1", session.RefreshToken)
	assert.False(t, session.ExpiresAt.IsZero())
}

func TestSignInRejectsUnverifiableToken(t *testing.T) {
	c := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(tokenResponse{LocalID: "user-1", IDToken: "not-a-jwt"})
	})

	_, err := c.SignIn(context.Background(), "alice@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSignInProviderError(t *testing.T) {
	c := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"INVALID_PASSWORD"}}`))
	})

	_, err := c.SignIn(context.Background(), "alice@example.com", "nope")
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
	assert.Equal(t, "INVALID_PASSWORD", err.Error())
}

func TestSignUp(t *testing.T) {
	var path string
	c := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"localId":"user-2"}`))
	})

	require.NoError(t, c.SignUp(context.Background(), "bob@example.com", "secret1"))
	assert.Equal(t, "/v1/accounts:signUp", path)
}

func TestSignOutRevokes(t *testing.T) {
	var auth, token string
	c := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/revoke", r.URL.Path)
		auth = r.Header.Get("Authorization")
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		token = body["token"]
	})

	err := c.SignOut(context.Background(), types.AuthSession{IDToken: "id-1", RefreshToken: "refresh-1"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer id-1", auth)
	assert.Equal(t, "refresh-1", token)
}

func TestSignOutWithoutRevokeURL(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", "", time.Second, NewHMACVerifier(testSecret, "", "", "admin"))
	assert.NoError(t, c.SignOut(context.Background(), types.AuthSession{}))
}
