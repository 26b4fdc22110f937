package service

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ignatzorin/easytransact-backend/internal/pkg/apperror"
)

// Actor - аутентифицированный пользователь, от имени которого выполняется операция.
type Actor struct {
	UserID string
	Email  string
}

// sessionClaims - клеймы сессии внешнего провайдера идентификации.
type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SessionVerifier проверяет токены сессий. Сервис токены не выпускает.
type SessionVerifier struct {
	secret    []byte
	publicKey *rsa.PublicKey
}

// NewSessionVerifier принимает общий секрет HS256 и/или публичный ключ RS256 в PEM.
func NewSessionVerifier(secret, publicKeyPEM string) (*SessionVerifier, error) {
	v := &SessionVerifier{}
	if secret != "" {
		v.secret = []byte(secret)
	}
	if strings.TrimSpace(publicKeyPEM) != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("session: некорректный публичный ключ: %w", err)
		}
		v.publicKey = key
	}
	if v.secret == nil && v.publicKey == nil {
		return nil, errors.New("session: не задан ни секрет, ни публичный ключ")
	}
	return v, nil
}

// Verify проверяет подпись и срок действия токена и возвращает пользователя.
func (v *SessionVerifier) Verify(token string) (Actor, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, v.keyFunc,
		jwt.WithValidMethods([]string{"HS256", "RS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return Actor{}, apperror.Wrap(err, apperror.ErrCodeUnauthorized, "недействительная сессия")
	}

	if claims.Subject == "" {
		return Actor{}, apperror.New(apperror.ErrCodeUnauthorized, "в сессии нет идентификатора пользователя")
	}
	return Actor{UserID: claims.Subject, Email: strings.ToLower(strings.TrimSpace(claims.Email))}, nil
}

func (v *SessionVerifier) keyFunc(t *jwt.Token) (any, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if v.secret != nil {
			return v.secret, nil
		}
	case *jwt.SigningMethodRSA:
		if v.publicKey != nil {
			return v.publicKey, nil
		}
	}
	return nil, fmt.Errorf("session: неподдерживаемый алгоритм %s", t.Method.Alg())
}
