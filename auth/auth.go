// Package auth supplies the current user's identity to the sync engine.
package auth

import (
	"errors"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

// User is the signed-in identity.
type User struct {
	ID   string
	Name string
}

// Initials derives the display initials shown on tasks and expenses.
func (u User) Initials() string {
	parts := strings.Fields(u.Name)
	var b strings.Builder
	for i, p := range parts {
		if i == 2 {
			break
		}
		r, _ := utf8.DecodeRuneInString(p)
		b.WriteRune(unicode.ToUpper(r))
	}
	if b.Len() == 0 && u.ID != "" {
		r, _ := utf8.DecodeRuneInString(u.ID)
		return string(unicode.ToUpper(r))
	}
	return b.String()
}

// Provider exposes the current user. "No current user" means the store must
// suspend writes and clear subscriptions.
type Provider interface {
	CurrentUser() (User, bool)
}

// Static is a fixed identity, used for local runs and tests.
type Static struct {
	User User
}

func (s Static) CurrentUser() (User, bool) {
	return s.User, s.User.ID != ""
}

// TokenProvider validates ID tokens and holds the identity they carry.
type TokenProvider struct {
	jwks       *keyfunc.JWKS
	audience   string
	issuer     string
	testSecret []byte
	parser     *jwt.Parser

	mu      sync.Mutex
	current *User
}

// NewTokenProvider creates a provider validating RS256 tokens against the
// given JWKS.
func NewTokenProvider(jwks *keyfunc.JWKS, audience, issuer string) *TokenProvider {
	return &TokenProvider{
		jwks:     jwks,
		audience: audience,
		issuer:   issuer,
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}), jwt.WithoutClaimsValidation()),
	}
}

// NewTestTokenProvider creates a provider accepting HS256 tokens signed with
// the shared secret. Test and local use only.
func NewTestTokenProvider(secret []byte) *TokenProvider {
	return &TokenProvider{
		testSecret: secret,
		parser:     jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation()),
	}
}

// SetToken validates the token and installs its identity as current.
func (p *TokenProvider) SetToken(tokenStr string) error {
	if strings.Count(tokenStr, ".") != 2 {
		return errors.New("malformed token")
	}

	keyFn := p.keyFunc()
	token, err := p.parser.Parse(tokenStr, keyFn)
	if err != nil {
		return err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("invalid claims")
	}

	now := time.Now().Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return errors.New("token not valid yet")
	}
	if p.audience != "" && !claims.VerifyAudience(p.audience, false) {
		return errors.New("invalid audience")
	}
	if p.issuer != "" && !claims.VerifyIssuer(p.issuer, false) {
		return errors.New("invalid issuer")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return errors.New("missing sub")
	}
	name, _ := claims["name"].(string)

	p.mu.Lock()
	p.current = &User{ID: sub, Name: name}
	p.mu.Unlock()
	return nil
}

// Clear signs the user out.
func (p *TokenProvider) Clear() {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
}

// CurrentUser returns the installed identity, if any.
func (p *TokenProvider) CurrentUser() (User, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return User{}, false
	}
	return *p.current, true
}

func (p *TokenProvider) keyFunc() jwt.Keyfunc {
	if p.testSecret != nil {
		return func(t *jwt.Token) (interface{}, error) {
			return p.testSecret, nil
		}
	}
	return p.jwks.Keyfunc
}
