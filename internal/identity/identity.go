// Package identity is the dashboard's client for the hosted identity
// provider: sign-in, sign-up and sign-out over its REST surface.
//
// Admin status is read from the verified ID token's role claim. Nothing the
// browser submits can grant it.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aanand-mishra/student-dashboard/internal/metrics"
	"github.com/aanand-mishra/student-dashboard/internal/types"
)

// Provider is what the auth forms delegate to.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (types.AuthSession, error)
	SignUp(ctx context.Context, email, password string) error
	SignOut(ctx context.Context, session types.AuthSession) error
}

// Error is a failure reported by the provider itself.
type Error struct {
	StatusCode int
	Code       string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("identity request failed with status code %d", e.StatusCode)
}

// Status implements metrics.StatusCoder.
func (e *Error) Status() int { return e.StatusCode }

// Client speaks the Identity Toolkit style endpoints:
//
//	POST {base}/accounts:signInWithPassword?key={apiKey}
//	POST {base}/accounts:signUp?key={apiKey}
//
// and, when revokeURL is set, POST {revokeURL} on sign-out.
type Client struct {
	baseURL    string
	apiKey     string
	revokeURL  string
	verifier   *Verifier
	httpClient *http.Client
	now        func() time.Time
}

// NewClient builds a provider client. verifier checks every issued token.
func NewClient(baseURL, apiKey, revokeURL string, timeout time.Duration, verifier *Verifier) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		revokeURL:  revokeURL,
		verifier:   verifier,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type tokenResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignIn exchanges credentials for a verified session.
func (c *Client) SignIn(ctx context.Context, email, password string) (types.AuthSession, error) {
	var tok tokenResponse
	err := c.post(ctx, "sign_in", c.endpoint("accounts:signInWithPassword"), "", passwordRequest{
		Email: email, Password: password, ReturnSecureToken: true,
	}, &tok)
	if err != nil {
		return types.AuthSession{}, err
	}

	claims, err := c.verifier.Verify(tok.IDToken)
	if err != nil {
		return types.AuthSession{}, err
	}

	session := types.AuthSession{
		UserID:       firstNonEmpty(claims.UserID, tok.LocalID),
		Email:        firstNonEmpty(claims.Email, tok.Email, email),
		IDToken:      tok.IDToken,
		RefreshToken: tok.RefreshToken,
		Admin:        claims.Admin,
		ExpiresAt:    claims.ExpiresAt,
	}
	if session.ExpiresAt.IsZero() {
		if secs, perr := time.ParseDuration(tok.ExpiresIn + "s"); perr == nil {
			session.ExpiresAt = c.now().Add(secs)
		}
	}

	slog.Info("signed in", slog.String("user", session.UserID), slog.Bool("admin", session.Admin))
	return session, nil
}

// SignUp creates an account. The provider's response token is not used;
// the user signs in separately afterwards.
func (c *Client) SignUp(ctx context.Context, email, password string) error {
	return c.post(ctx, "sign_up", c.endpoint("accounts:signUp"), "", passwordRequest{
		Email: email, Password: password, ReturnSecureToken: true,
	}, nil)
}

// SignOut revokes the refresh token when a revoke endpoint is configured.
func (c *Client) SignOut(ctx context.Context, session types.AuthSession) error {
	if c.revokeURL == "" {
		return nil
	}
	return c.post(ctx, "sign_out", c.revokeURL, session.IDToken, map[string]string{
		"token": session.RefreshToken,
	}, nil)
}

func (c *Client) endpoint(method string) string {
	u := c.baseURL + "/" + method
	if c.apiKey != "" {
		u += "?key=" + url.QueryEscape(c.apiKey)
	}
	return u
}

func (c *Client) post(ctx context.Context, op, target, bearer string, body, out any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveUpstream("identity", op, start, err) }()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("identity.%s: marshal: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("identity.%s: new request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity.%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("identity.%s: read body: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		idErr := &Error{StatusCode: resp.StatusCode}
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil {
			idErr.Code = er.Error.Message
		}
		return idErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("identity.%s: decode: %w", op, err)
	}
	return nil
}

// IsProviderError reports whether err came from the provider rather than
// the transport.
func IsProviderError(err error) bool {
	var idErr *Error
	return errors.As(err, &idErr)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
