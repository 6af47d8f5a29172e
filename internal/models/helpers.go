package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

func GenerateSessionID() string {
	return uuid.New().String()
}

// GenerateServerSeed returns a high-entropy secret for the commit-reveal
// scheme. Two UUIDs give 72 characters of seed material.
func GenerateServerSeed() string {
	return uuid.New().String() + uuid.New().String()
}

// GenerateClientSeed creates a client seed server-side when the client did
// not supply one. 128 bits of entropy, hex encoded.
func GenerateClientSeed() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate client seed: %v", err)
	}
	return hex.EncodeToString(bytes), nil
}
