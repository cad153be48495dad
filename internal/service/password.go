// password.go — хеширование и проверка паролей ссылок.
package service

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword возвращает bcrypt-хеш пароля.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("ошибка хеширования пароля: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword сравнивает пароль с хешем. Сравнение выполняется за
// константное время внутри bcrypt. Для незащищённой ссылки (hash == nil)
// любой пароль подходит.
func VerifyPassword(hash *string, password string) bool {
	if hash == nil || *hash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(*hash), []byte(password)) == nil
}
