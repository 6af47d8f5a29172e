package services

import (
	"github.com/WishingWellCode/Wishing/internal/logging"
)

// StatsService reads the aggregates the resolve path writes.
type StatsService struct {
	store *RedisService
	log   logging.Logger
}

func NewStatsService(store *RedisService, log logging.Logger) *StatsService {
	return &StatsService{
		store: store,
		log:   log.With().Str(logging.FieldComponent, "stats").Logger(),
	}
}

type GlobalStats struct {
	FountainPool     int64 `json:"fountainPool"`
	TotalGamesPlayed int64 `json:"totalGamesPlayed"`
	TotalWISHGambled int64 `json:"totalWISHGambled"`
	BiggestWinEver   int64 `json:"biggestWinEver"`
	JackpotsWon      int64 `json:"jackpotsWon"`
}

func (s *StatsService) Global() (*GlobalStats, error) {
	pool, err := s.store.PoolTotal()
	if err != nil {
		return nil, err
	}

	fields, err := s.store.GetGlobalStats()
	if err != nil {
		return nil, err
	}

	return &GlobalStats{
		FountainPool:     pool,
		TotalGamesPlayed: fields["gamesPlayed"],
		TotalWISHGambled: fields["totalGambled"],
		BiggestWinEver:   fields["biggestWin"],
		JackpotsWon:      fields["jackpotsWon"],
	}, nil
}

type LeaderboardEntry struct {
	WalletAddress string `json:"walletAddress"`
	Amount        int64  `json:"amount"`
}

type Leaderboard struct {
	TopWinners []LeaderboardEntry `json:"topWinners"`
	MostActive []LeaderboardEntry `json:"mostActive"`
	Luckiest   []LeaderboardEntry `json:"luckiest"`
}

// Leaderboards ranks wallets by total won, games played, and biggest single
// win respectively.
func (s *StatsService) Leaderboards(limit int64) (*Leaderboard, error) {
	winners, err := s.store.TopWallets(KeyLeaderboardWon, limit)
	if err != nil {
		return nil, err
	}
	active, err := s.store.TopWallets(KeyLeaderboardPlayed, limit)
	if err != nil {
		return nil, err
	}
	luckiest, err := s.store.TopWallets(KeyLeaderboardBiggest, limit)
	if err != nil {
		return nil, err
	}

	return &Leaderboard{
		TopWinners: toEntries(winners),
		MostActive: toEntries(active),
		Luckiest:   toEntries(luckiest),
	}, nil
}

func toEntries(wallets []ScoredWallet) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(wallets))
	for _, w := range wallets {
		entries = append(entries, LeaderboardEntry{
			WalletAddress: w.WalletAddress,
			Amount:        w.Score,
		})
	}
	return entries
}
