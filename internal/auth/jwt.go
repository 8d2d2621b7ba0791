package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken - подпись, срок или формат токена не прошли проверку
	ErrInvalidToken = errors.New("недействительный токен")
	// ErrWeakSecret - секрет короче 32 байт
	ErrWeakSecret = errors.New("секрет должен быть не короче 32 байт")
)

const issuer = "voxel-engine"

// Claims - содержимое токена доступа к REST API
type Claims struct {
	// Editor разрешает изменять сетку и перестраивать пакеты
	Editor bool `json:"editor"`
	jwt.RegisteredClaims
}

// TokenIssuer выпускает и проверяет HS256 токены одним секретом
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer создаёт издателя с секретом в base64.
// Пустой секрет - случайный, токены живут до перезапуска процесса.
func NewTokenIssuer(secretB64 string, ttl time.Duration) (*TokenIssuer, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if secretB64 == "" {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("генерация секрета: %w", err)
		}
		return &TokenIssuer{secret: secret, ttl: ttl}, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(secretB64)
	if err != nil {
		return nil, fmt.Errorf("секрет не в base64: %w", err)
	}
	if len(decoded) < 32 {
		return nil, ErrWeakSecret
	}
	return &TokenIssuer{secret: decoded, ttl: ttl}, nil
}

// Issue создаёт токен для subject
func (ti *TokenIssuer) Issue(subject string, editor bool) (string, error) {
	now := time.Now()
	claims := &Claims{
		Editor: editor,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   subject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ti.secret)
}

// Validate проверяет токен и возвращает его содержимое
func (ti *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return ti.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// GenerateSecureSecret генерирует новый секрет в base64
func GenerateSecureSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(b)
}
