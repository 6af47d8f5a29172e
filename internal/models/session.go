package models

import "time"

type SessionStatus string

const (
	StatusPending  SessionStatus = "pending"
	StatusResolved SessionStatus = "resolved"
)

// GamblingSession is the full server-side record of one fountain wish.
// The server seed is generated at creation and must never leave the server
// until the session resolves; only its commit is shown to the client.
type GamblingSession struct {
	SessionID     string        `json:"sessionId"`
	WalletAddress string        `json:"walletAddress"`
	ServerSeed    string        `json:"serverSeed"`
	ServerCommit  string        `json:"serverCommit"`
	ClientSeed    string        `json:"clientSeed"`
	Status        SessionStatus `json:"status"`
	Timestamp     time.Time     `json:"timestamp"`

	// Result is set exactly once, when the session transitions to resolved.
	Result *SessionResult `json:"result,omitempty"`
}

type SessionResult struct {
	Tier       string  `json:"tier"`
	Multiplier float64 `json:"multiplier"`
	Payout     int64   `json:"payout"`
	PayoutTx   string  `json:"payoutTx"`
	BurnTx     string  `json:"burnTx"`
}

func (s *GamblingSession) Age() time.Duration {
	return time.Since(s.Timestamp)
}

func (s *GamblingSession) Stale(maxAge time.Duration) bool {
	return s.Age() > maxAge
}

// UserStats is a derived, non-authoritative aggregate per wallet.
// Every field is monotonically non-decreasing.
type UserStats struct {
	TotalGambled int64 `json:"totalGambled"`
	TotalWon     int64 `json:"totalWon"`
	GamesPlayed  int64 `json:"gamesPlayed"`
	BiggestWin   int64 `json:"biggestWin"`
}

// GambleEvent is one append-only entry in the resolution log,
// keyed by (wallet, timestamp).
type GambleEvent struct {
	WalletAddress string  `json:"walletAddress"`
	SessionID     string  `json:"sessionId"`
	Timestamp     int64   `json:"timestamp"`
	AmountGambled int64   `json:"amountGambled"`
	Tier          string  `json:"tier"`
	Multiplier    float64 `json:"multiplier"`
	AmountWon     int64   `json:"amountWon"`
}
