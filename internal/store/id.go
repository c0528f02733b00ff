package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const idRandomBytes = 10

// GenerateAccountID returns a new account id using the ac- prefix.
func GenerateAccountID() (string, error) {
	return generateID("ac")
}

// GenerateFileID returns a new file id using the fl- prefix.
func GenerateFileID() (string, error) {
	return generateID("fl")
}

// GenerateSessionID returns a new session id using the se- prefix.
func GenerateSessionID() (string, error) {
	return generateID("se")
}

func generateID(prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("id prefix is required")
	}
	suffix, err := randomHex(idRandomBytes)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", prefix, suffix), nil
}

func randomHex(numBytes int) (string, error) {
	if numBytes <= 0 {
		return "", fmt.Errorf("numBytes must be > 0")
	}
	buf := make([]byte, numBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
