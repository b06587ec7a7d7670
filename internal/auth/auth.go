package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"appointment-portal/internal/model"
)

var ErrBadToken = errors.New("invalid token")

// Claims bind a browser to a portal session. The user record itself stays
// in the session store; the token only names it.
type Claims struct {
	SessionID string     `json:"sid"`
	UserID    int64      `json:"uid"`
	Role      model.Role `json:"role"`
	jwt.RegisteredClaims
}

func MakeToken(sid string, uid int64, role model.Role, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := Claims{
		SessionID: sid,
		UserID:    uid,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sid,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

func ParseToken(raw, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || c.SessionID == "" {
		return nil, ErrBadToken
	}
	return c, nil
}
