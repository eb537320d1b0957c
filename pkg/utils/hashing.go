package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func HashPartnerKey(rawKey string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(rawKey), 10)
	return string(bytes), err
}

func ComparePartnerKey(keyHash string, rawKey string) error {
	return bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(rawKey))
}

// GeneratePartnerKey mints a "pk_"-prefixed random key. Only the bcrypt
// hash is persisted; the raw key is handed to the admin exactly once.
func GeneratePartnerKey() (string, error) {
	token, err := GenerateSecureToken(16)
	if err != nil {
		return "", err
	}
	return "pk_" + token, nil
}

func GenerateSecureToken(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("invalid token length")
	}

	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	return hex.EncodeToString(bytes), nil
}

// NormalizeEmailDomain lowercases and strips everything up to the last "@".
func NormalizeEmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
