package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// TestIssueAndValidate тестирует выпуск и проверку токена
func TestIssueAndValidate(t *testing.T) {
	ti, err := NewTokenIssuer(GenerateSecureSecret(), time.Hour)
	if err != nil {
		t.Fatalf("Ошибка создания издателя: %v", err)
	}

	token, err := ti.Issue("builder", true)
	if err != nil {
		t.Fatalf("Ошибка генерации JWT: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("Неверный формат JWT токена: %s", token)
	}

	claims, err := ti.Validate(token)
	if err != nil {
		t.Fatalf("Валидный токен определен как недействительный: %v", err)
	}
	if claims.Subject != "builder" || !claims.Editor {
		t.Errorf("Неверное содержимое токена: %+v", claims)
	}
}

// TestValidateInvalidJWT тестирует валидацию недействительных токенов
func TestValidateInvalidJWT(t *testing.T) {
	ti, err := NewTokenIssuer("", 0)
	if err != nil {
		t.Fatalf("Ошибка создания издателя: %v", err)
	}

	testCases := []string{
		"invalid.token.here",
		"",
		"not.a.jwt",
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature",
	}
	for _, invalidToken := range testCases {
		if _, err := ti.Validate(invalidToken); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Токен %q должен быть недействительным, ошибка: %v", invalidToken, err)
		}
	}
}

// TestForeignSecret проверяет, что токен другого издателя отвергается
func TestForeignSecret(t *testing.T) {
	a, _ := NewTokenIssuer("", 0)
	b, _ := NewTokenIssuer("", 0)

	token, err := a.Issue("viewer", false)
	if err != nil {
		t.Fatalf("Ошибка генерации JWT: %v", err)
	}
	if _, err := b.Validate(token); err == nil {
		t.Error("Токен с чужим секретом принят")
	}
}

// TestExpiredToken проверяет истёкший токен
func TestExpiredToken(t *testing.T) {
	ti, _ := NewTokenIssuer("", time.Nanosecond)
	token, err := ti.Issue("viewer", false)
	if err != nil {
		t.Fatalf("Ошибка генерации JWT: %v", err)
	}
	time.Sleep(time.Second)
	if _, err := ti.Validate(token); err == nil {
		t.Error("Истёкший токен принят")
	}
}

// TestWeakSecret проверяет отказ от короткого секрета
func TestWeakSecret(t *testing.T) {
	if _, err := NewTokenIssuer("c2hvcnQ=", 0); !errors.Is(err, ErrWeakSecret) {
		t.Errorf("Ожидалась ErrWeakSecret, получено %v", err)
	}
	if _, err := NewTokenIssuer("%%%", 0); err == nil {
		t.Error("Секрет не в base64 принят")
	}
}
