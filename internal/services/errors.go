package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrAlreadyResolved = errors.New("session already resolved")
	ErrBurnNotVerified = errors.New("burn transaction not verified")
)

// ConflictError reports a fresh pending session already held by the wallet,
// with enough detail for the caller to decide to wait or call clear.
type ConflictError struct {
	SessionID string
	Age       time.Duration
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("already have pending session %s (age %s)", e.SessionID, e.Age)
}
