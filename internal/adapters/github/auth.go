package github

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/archestra-ai/reputation-bot/pkg/logger"
)

const (
	jwtLifetime      = 10 * time.Minute // GitHub rejects App JWTs valid for longer
	jwtClockSkew     = 30 * time.Second
	tokenEarlyExpiry = 5 * time.Minute
)

// appAuth exchanges an App JWT for an installation token on the client's
// repository and caches it until shortly before it expires.
type appAuth struct {
	client *Client
	appID  int64
	key    *rsa.PrivateKey
	now    func() time.Time

	mu             sync.Mutex
	installationID int64
	token          string
	expiry         time.Time
}

func newAppAuth(c *Client, appID int64, privateKeyPEM []byte) (*appAuth, error) {
	key, err := parsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuth, err)
	}
	return &appAuth{client: c, appID: appID, key: key, now: time.Now}, nil
}

// parsePrivateKey accepts PKCS1 and PKCS8 RSA keys.
func parsePrivateKey(privateKeyPEM []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(privateKeyPEM)
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing the private key")
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	rsaKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return rsaKey, nil
}

// appJWT signs a short-lived JWT identifying the App.
func (a *appAuth) appJWT() (string, error) {
	now := a.now()
	claims := jwt.MapClaims{
		"iat": now.Add(-jwtClockSkew).Unix(),
		"exp": now.Add(jwtLifetime - jwtClockSkew).Unix(),
		"iss": strconv.FormatInt(a.appID, 10),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("%w: sign app jwt: %w", ErrAuth, err)
	}
	return signed, nil
}

// Authorization returns a cached installation token, refreshing it when needed.
func (a *appAuth) Authorization(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && a.now().Before(a.expiry) {
		return "Bearer " + a.token, nil
	}

	signed, err := a.appJWT()
	if err != nil {
		return "", err
	}
	bearer := "Bearer " + signed

	if a.installationID == 0 {
		var inst struct {
			ID int64 `json:"id"`
		}
		if err := a.client.send(ctx, "get_installation", http.MethodGet, a.client.repoPath("/installation"), nil, bearer, nil, &inst); err != nil {
			return "", fmt.Errorf("lookup installation: %w", err)
		}
		a.installationID = inst.ID
	}

	var tok struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	path := fmt.Sprintf("/app/installations/%d/access_tokens", a.installationID)
	if err := a.client.send(ctx, "create_installation_token", http.MethodPost, path, nil, bearer, nil, &tok); err != nil {
		return "", fmt.Errorf("create installation token: %w", err)
	}
	if tok.Token == "" {
		return "", fmt.Errorf("%w: received empty installation token", ErrAuth)
	}

	a.token = tok.Token
	a.expiry = tok.ExpiresAt.Add(-tokenEarlyExpiry)
	a.client.logger.Info(ctx, "installation token refreshed",
		logger.Int64("installation", a.installationID),
		logger.String("expires_at", tok.ExpiresAt.Format(time.RFC3339)),
	)
	return "Bearer " + a.token, nil
}

// appSlug returns the App's slug, authenticating with the App JWT.
func (a *appAuth) appSlug(ctx context.Context) (string, error) {
	signed, err := a.appJWT()
	if err != nil {
		return "", err
	}
	var app struct {
		Slug string `json:"slug"`
	}
	if err := a.client.send(ctx, "get_app", http.MethodGet, "/app", nil, "Bearer "+signed, nil, &app); err != nil {
		return "", err
	}
	return app.Slug, nil
}
