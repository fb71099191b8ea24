package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"company-service/internal/config"
	"company-service/internal/models"
)

var (
	ErrInvalidAccessToken  = errors.New("invalid access token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// Claims is the JWT payload issued for company sessions. Field names
// match what downstream services already parse.
type Claims struct {
	UserID    string `json:"userId"`
	CompanyID string `json:"companyId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	UserType  string `json:"userType"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Manager issues and verifies HS256 access and refresh tokens. The two
// token kinds are signed with distinct secrets so a refresh token can
// never pass as an access token.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string

	now func() time.Time
}

func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		accessSecret:  []byte(cfg.JWT.AccessSecret),
		refreshSecret: []byte(cfg.JWT.RefreshSecret),
		accessTTL:     cfg.JWT.AccessTTL,
		refreshTTL:    cfg.JWT.RefreshTTL,
		issuer:        cfg.JWT.Issuer,
		now:           time.Now,
	}
}

// Issue returns a fresh access/refresh token pair for the company.
func (m *Manager) Issue(company *models.Company) (*TokenPair, error) {
	access, err := m.sign(company, m.accessSecret, m.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := m.sign(company, m.refreshSecret, m.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// refresh token itself is not rotated.
func (m *Manager) Refresh(refreshToken string) (string, error) {
	claims, err := m.verify(refreshToken, m.refreshSecret, ErrInvalidRefreshToken)
	if err != nil {
		return "", err
	}

	return m.signClaims(claims.UserID, claims.Email, m.accessSecret, m.accessTTL)
}

// VerifyAccess validates an access token and returns its claims.
func (m *Manager) VerifyAccess(tokenString string) (*Claims, error) {
	return m.verify(tokenString, m.accessSecret, ErrInvalidAccessToken)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (m *Manager) VerifyRefresh(tokenString string) (*Claims, error) {
	return m.verify(tokenString, m.refreshSecret, ErrInvalidRefreshToken)
}

func (m *Manager) sign(company *models.Company, secret []byte, ttl time.Duration) (string, error) {
	return m.signClaims(company.CompanyID, company.Email, secret, ttl)
}

func (m *Manager) signClaims(companyID, email string, secret []byte, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		UserID:    companyID,
		CompanyID: companyID,
		Email:     email,
		Role:      "company",
		UserType:  "company",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   companyID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (m *Manager) verify(tokenString string, secret []byte, sentinel error) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, sentinel
	}

	return claims, nil
}
