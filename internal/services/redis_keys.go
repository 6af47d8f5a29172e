package services

import "time"

const (
	KeyPendingSession = "pending:%s"   // pending:<wallet> -> session JSON (per-wallet lock)
	KeySession        = "session:%s"   // session:<id> -> session JSON (audit record, never expires)
	KeyGambleEvent    = "gamble:%s:%d" // gamble:<wallet>:<timestamp> -> event JSON
	KeyUserStats      = "user:%s"      // user:<wallet> -> stats JSON
	KeyFountainPool   = "total"        // running pool counter
	KeyGlobalStats    = "stats:global" // hash of global aggregates

	KeyLeaderboardWon     = "lb:won"     // ZSET wallet -> total won
	KeyLeaderboardPlayed  = "lb:played"  // ZSET wallet -> games played
	KeyLeaderboardBiggest = "lb:biggest" // ZSET wallet -> biggest single win

	// Safety net only. Freshness is enforced at PendingMaxAge by the
	// lifecycle; the TTL just keeps abandoned locks from living forever.
	TTLPendingLock = time.Hour
	TTLGambleEvent = 90 * 24 * time.Hour

	// A pending session older than this is treated as abandoned.
	PendingMaxAge = 5 * time.Minute

	// ExactStake is the only stake the fountain accepts, in whole $WISH.
	ExactStake = int64(1000)
)
