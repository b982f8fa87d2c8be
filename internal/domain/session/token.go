package session

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/travy/admin-hub/internal/domain/shared"
)

// Claims - поля токена бэкенда, которые нужны консоли.
type Claims struct {
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenDecoder извлекает claims из токена бэкенда.
// Без секрета подпись не проверяется.
type TokenDecoder struct {
	secret []byte
	parser *jwt.Parser
}

// NewTokenDecoder создаёт декодер. Пустой secret - режим без проверки подписи.
func NewTokenDecoder(secret string) *TokenDecoder {
	return &TokenDecoder{
		secret: []byte(secret),
		// exp проверяет Owner по своим часам
		parser: jwt.NewParser(jwt.WithoutClaimsValidation()),
	}
}

// Verifies сообщает, проверяется ли подпись.
func (d *TokenDecoder) Verifies() bool {
	return len(d.secret) > 0
}

// Decode разбирает токен. Токен, который не является JWT, отклоняется.
func (d *TokenDecoder) Decode(token string) (*Claims, error) {
	claims := &Claims{}

	if d.Verifies() {
		_, err := d.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, shared.NewDomainError("session", "Decode", shared.ErrUnauthorized, "unexpected signing method")
			}
			return d.secret, nil
		})
		if err != nil {
			return nil, shared.WrapError("session", "Decode", shared.ErrUnauthorized, "invalid token signature", err)
		}
		return claims, nil
	}

	if _, _, err := d.parser.ParseUnverified(token, claims); err != nil {
		return nil, shared.WrapError("session", "Decode", shared.ErrInvalidFormat, "token is not a JWT", err)
	}
	return claims, nil
}
