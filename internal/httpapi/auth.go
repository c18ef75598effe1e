package httpapi

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"tokopos/backend/internal/domain"
)

const (
	tokenKindAccess  = "access"
	tokenKindRefresh = "refresh"
)

type AuthManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
}

type posClaims struct {
	jwtlib.RegisteredClaims
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
	Kind   string `json:"kind"`
}

func NewAuthManager(secret string, accessTTL, refreshTTL time.Duration) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if accessTTL <= 0 {
		accessTTL = 20 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 24 * time.Hour
	}

	return &AuthManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     "tokopos",
	}
}

// IssueTokens signs a short-lived access token and a longer-lived refresh
// token for the user. The refresh token carries no role; the role is
// re-read from the store when it is redeemed.
func (a *AuthManager) IssueTokens(user domain.UserAccount) (access string, refresh string, expiresAt time.Time, err error) {
	now := time.Now().UTC()
	expiresAt = now.Add(a.accessTTL)

	access, err = a.sign(user, tokenKindAccess, now, expiresAt)
	if err != nil {
		return "", "", time.Time{}, err
	}
	refresh, err = a.sign(user, tokenKindRefresh, now, now.Add(a.refreshTTL))
	if err != nil {
		return "", "", time.Time{}, err
	}
	return access, refresh, expiresAt, nil
}

func (a *AuthManager) sign(user domain.UserAccount, kind string, now, expiresAt time.Time) (string, error) {
	claims := posClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    a.issuer,
		},
		UserID: user.ID,
		Kind:   kind,
	}
	if kind == tokenKindAccess {
		claims.Role = user.Role
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *AuthManager) parse(tokenStr string, kind string) (*posClaims, error) {
	claims := &posClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("expected %s token", kind)
	}
	if claims.UserID < 1 || claims.Subject == "" {
		return nil, errors.New("invalid token subject")
	}
	return claims, nil
}

func (a *AuthManager) ParseAccessToken(tokenStr string) (domain.Actor, error) {
	claims, err := a.parse(tokenStr, tokenKindAccess)
	if err != nil {
		return domain.Actor{}, err
	}
	return domain.Actor{UserID: claims.UserID, Username: claims.Subject, Role: claims.Role}, nil
}

// ParseRefreshToken returns the user id the refresh token was issued to.
func (a *AuthManager) ParseRefreshToken(tokenStr string) (int64, error) {
	claims, err := a.parse(tokenStr, tokenKindRefresh)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}
