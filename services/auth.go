package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	magicLinkTTL = 15 * time.Minute
	sessionTTL   = 7 * 24 * time.Hour
)

// AuthService issues one-time login links and the JWTs that identify a
// signed-in user to the board API. The user id is the login email.
type AuthService struct {
	jwtSecret []byte

	mu     sync.Mutex
	tokens map[string]magicToken // token -> pending login
	now    func() time.Time
}

type magicToken struct {
	email   string
	expires time.Time
}

func NewAuthService(jwtSecret string) *AuthService {
	return &AuthService{
		jwtSecret: []byte(jwtSecret),
		tokens:    make(map[string]magicToken),
		now:       time.Now,
	}
}

// GenerateMagicLink creates a one-time token for email and returns the link
// that redeems it. Delivering the link is left to the caller.
func (s *AuthService) GenerateMagicLink(email string, baseURL string) (string, error) {
	token, err := s.generateSecureToken(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.mu.Lock()
	s.tokens[token] = magicToken{email: email, expires: s.now().Add(magicLinkTTL)}
	s.mu.Unlock()

	return fmt.Sprintf("%s/api/auth/magic-link?token=%s", baseURL, url.QueryEscape(token)), nil
}

// VerifyMagicLinkToken redeems a one-time token and returns its email.
func (s *AuthService) VerifyMagicLinkToken(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, exists := s.tokens[token]
	if !exists {
		return "", errors.New("invalid or expired token")
	}
	delete(s.tokens, token)

	if s.now().After(pending.expires) {
		return "", errors.New("invalid or expired token")
	}
	return pending.email, nil
}

// CreateJWT signs a session token whose subject is userID.
func (s *AuthService) CreateJWT(userID string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// VerifyJWT checks a session token and returns its user id.
func (s *AuthService) VerifyJWT(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("subject claim missing")
	}
	return claims.Subject, nil
}

func (s *AuthService) generateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
