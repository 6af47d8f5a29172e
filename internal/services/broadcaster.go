package services

import "github.com/WishingWellCode/Wishing/internal/models"

// Broadcaster fans resolution results out to the plaza channel. It is
// best-effort only and must never block the resolve path.
type Broadcaster interface {
	FountainUpdate(pool int64, result *models.SessionResult)
}

type NoopBroadcaster struct{}

func (NoopBroadcaster) FountainUpdate(pool int64, result *models.SessionResult) {}
