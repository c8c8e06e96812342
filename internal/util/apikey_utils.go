package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/contentlens/analyzer-api/internal/domain/apikey"
)

var credentialPattern = regexp.MustCompile(`^ca_(live|test)_sk_[a-f0-9]{64}$`)

// GenerateAPIKey mints a new credential for the given environment and
// returns the full plaintext key (recoverable only here), its display
// prefix, last four characters and the sha256 hash persisted in its place.
func GenerateAPIKey(env apikey.Environment) (fullKey, prefix, lastFour, keyHash string, err error) {
	secret := make([]byte, apikey.SecretHexLength/2)
	if _, err = rand.Read(secret); err != nil {
		return "", "", "", "", fmt.Errorf("failed to generate secret: %w", err)
	}

	fullKey = fmt.Sprintf(apikey.CredentialFormat, apikey.EnvMarker(env), hex.EncodeToString(secret))
	prefix = fullKey[:apikey.DisplayPrefixLen]
	lastFour = fullKey[len(fullKey)-4:]
	keyHash = HashAPIKey(fullKey)

	return fullKey, prefix, lastFour, keyHash, nil
}

func HashAPIKey(fullKey string) string {
	hashBytes := sha256.Sum256([]byte(fullKey))
	return fmt.Sprintf("%x", hashBytes)
}

// MatchesCredentialFormat reports whether the string has the structural
// shape of one of our credentials. Anything else is rejected before any
// hashing or store lookup happens.
func MatchesCredentialFormat(credential string) bool {
	return credentialPattern.MatchString(credential)
}
