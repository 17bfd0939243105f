package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/farellandr/ticketgate/internal/helpers"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const adminSubject = "admin"

// AdminAuth checks the single admin password and issues the bearer tokens
// the admin routes accept. Only the bcrypt hash of the password is kept.
type AdminAuth struct {
	hash   []byte
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewAdminAuth(password, secret string, ttl time.Duration) (*AdminAuth, error) {
	if password == "" || secret == "" {
		return nil, helpers.NewError(helpers.KindMisconfigured, "Admin access is not configured.")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	return &AdminAuth{hash: hash, secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (a *AdminAuth) Login(password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return "", helpers.NewError(helpers.KindUnauthorized, "Invalid password.")
	}

	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   adminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	})

	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", helpers.WrapError(helpers.KindInternal, "Failed to generate token.", err)
	}
	return tokenString, nil
}

func (a *AdminAuth) Verify(tokenString string) error {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithSubject(adminSubject),
	)
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return helpers.WrapError(helpers.KindUnauthorized, "Token expired.", err)
		}
		return helpers.WrapError(helpers.KindUnauthorized, "Invalid token.", err)
	}
	return nil
}
