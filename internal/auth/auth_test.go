package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret"

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func signHS(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func adminClaims(exp time.Time) *Claims {
	return &Claims{
		Email: "admin@restoboost.kz",
		Role:  "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "restoboost",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

func TestJWTValidator_HS256(t *testing.T) {
	v, err := NewJWTValidator(testSecret, "", "restoboost")
	require.NoError(t, err)
	now := time.Now()

	claims, err := v.Validate(signHS(t, adminClaims(now.Add(time.Hour))))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "admin", claims.Role)

	_, err = v.Validate(signHS(t, adminClaims(now.Add(-time.Hour))))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Validate("")
	assert.ErrorIs(t, err, ErrMissingToken)

	noSubject := adminClaims(now.Add(time.Hour))
	noSubject.Subject = ""
	_, err = v.Validate(signHS(t, noSubject))
	assert.ErrorIs(t, err, ErrInvalidToken)

	otherIssuer := adminClaims(now.Add(time.Hour))
	otherIssuer.Issuer = "someone-else"
	_, err = v.Validate(signHS(t, otherIssuer))
	assert.ErrorIs(t, err, ErrInvalidToken)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, adminClaims(now.Add(time.Hour))).SignedString([]byte("guess"))
	require.NoError(t, err)
	_, err = v.Validate(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTValidator_RS256(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	v, err := NewJWTValidator("", string(pemKey), "")
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, adminClaims(time.Now().Add(time.Hour))).SignedString(key)
	require.NoError(t, err)
	_, err = v.Validate(token)
	require.NoError(t, err)

	_, err = v.Validate(signHS(t, adminClaims(time.Now().Add(time.Hour))))
	assert.ErrorIs(t, err, ErrInvalidToken, "HMAC tokens are refused once a public key is set")

	_, err = NewJWTValidator("", "not a pem", "")
	assert.Error(t, err)
}

func TestJWTValidator_Unconfigured(t *testing.T) {
	v, err := NewJWTValidator("", "", "")
	require.NoError(t, err)
	assert.False(t, v.Configured())
	_, err = v.Validate("a.b.c")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func newIdentityServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		var c credentials
		_ = json.NewDecoder(r.Body).Decode(&c)
		if c.Email == "taken@restoboost.kz" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"msg":"User already registered"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(User{ID: "new-user", Email: c.Email})
	})
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		var c credentials
		_ = json.NewDecoder(r.Body).Decode(&c)
		if r.URL.Query().Get("grant_type") != "password" || c.Password != "hunter2" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(Session{AccessToken: "remote-token", TokenType: "bearer", User: User{ID: "u-1", Email: c.Email}})
	})
	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "anon" || r.Header.Get("Authorization") != "Bearer remote-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(User{ID: "u-1", Email: "admin@restoboost.kz", Role: "authenticated"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestIdentityClient(t *testing.T) {
	srv := newIdentityServer(t)
	c := NewIdentityClient(srv.URL+"/", "anon", time.Second, testLogger())
	ctx := context.Background()

	user, err := c.SignUp(ctx, "new@restoboost.kz", "pw")
	require.NoError(t, err)
	assert.Equal(t, "new-user", user.ID)

	_, err = c.SignUp(ctx, "taken@restoboost.kz", "pw")
	assert.ErrorIs(t, err, ErrSignUpFailed)
	assert.Contains(t, err.Error(), "User already registered")

	session, err := c.SignIn(ctx, "admin@restoboost.kz", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "remote-token", session.AccessToken)

	_, err = c.SignIn(ctx, "admin@restoboost.kz", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	u, err := c.VerifyToken(ctx, "remote-token")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)

	_, err = c.VerifyToken(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIdentityClient_Down(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewIdentityClient(url, "anon", time.Second, testLogger())
	_, err := c.SignIn(context.Background(), "a", "b")
	assert.ErrorIs(t, err, ErrIdentityDown)
}

func TestMiddleware(t *testing.T) {
	srv := newIdentityServer(t)
	validator, err := NewJWTValidator(testSecret, "", "")
	require.NoError(t, err)
	remote := NewIdentityClient(srv.URL, "anon", time.Second, testLogger())

	protected := Middleware(validator, remote, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := FromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(claims.Subject))
	}))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"local token", "Bearer " + signHS(t, adminClaims(time.Now().Add(time.Hour))), http.StatusOK, "user-1"},
		{"remote token", "bearer remote-token", http.StatusOK, "u-1"},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/restaurants", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}
