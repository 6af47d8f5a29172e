package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/WishingWellCode/Wishing/internal/config"
	"github.com/WishingWellCode/Wishing/internal/models"
)

type RedisService struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}

	return &RedisService{client: client, ctx: ctx}, nil
}

// NewRedisServiceFromClient wraps an existing client. Used by tests that run
// against miniredis.
func NewRedisServiceFromClient(client *redis.Client) *RedisService {
	return &RedisService{client: client, ctx: context.Background()}
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

// TryAcquirePending attempts to take the per-wallet pending lock with an
// atomic create-if-absent, so two concurrent starts for the same wallet
// cannot both win. On conflict the existing pending session is returned so
// the caller can evaluate staleness.
func (s *RedisService) TryAcquirePending(session *models.GamblingSession) (bool, *models.GamblingSession, error) {
	key := fmt.Sprintf(KeyPendingSession, session.WalletAddress)

	data, err := json.Marshal(session)
	if err != nil {
		return false, nil, fmt.Errorf("failed to marshal session: %v", err)
	}

	acquired, err := s.client.SetNX(s.ctx, key, data, TTLPendingLock).Result()
	if err != nil {
		return false, nil, fmt.Errorf("failed to acquire pending lock: %v", err)
	}
	if acquired {
		return true, nil, nil
	}

	existing, err := s.GetPendingSession(session.WalletAddress)
	if err != nil {
		return false, nil, err
	}
	// existing may be nil if the lock vanished between SETNX and GET;
	// the caller retries in that case.
	return false, existing, nil
}

func (s *RedisService) GetPendingSession(walletAddress string) (*models.GamblingSession, error) {
	key := fmt.Sprintf(KeyPendingSession, walletAddress)

	data, err := s.client.Get(s.ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending session: %v", err)
	}

	var session models.GamblingSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending session: %v", err)
	}

	return &session, nil
}

func (s *RedisService) GetSession(sessionID string) (*models.GamblingSession, error) {
	key := fmt.Sprintf(KeySession, sessionID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %v", err)
	}

	var session models.GamblingSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %v", err)
	}

	return &session, nil
}

// SaveSession writes the id-keyed record with no expiry. Resolved sessions
// are immutable audit records.
func (s *RedisService) SaveSession(session *models.GamblingSession) error {
	key := fmt.Sprintf(KeySession, session.SessionID)

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %v", err)
	}

	return s.client.Set(s.ctx, key, data, 0).Err()
}

func (s *RedisService) DeletePending(walletAddress string) error {
	key := fmt.Sprintf(KeyPendingSession, walletAddress)
	return s.client.Del(s.ctx, key).Err()
}

func (s *RedisService) DeleteSession(sessionID string) error {
	key := fmt.Sprintf(KeySession, sessionID)
	return s.client.Del(s.ctx, key).Err()
}

// TryMarkResolving takes a short-lived lock on a session id so only one
// resolve call can be paying out at a time.
func (s *RedisService) TryMarkResolving(sessionID string) (bool, error) {
	key := fmt.Sprintf("resolving:%s", sessionID)
	return s.client.SetNX(s.ctx, key, "1", 2*time.Minute).Result()
}

func (s *RedisService) UnmarkResolving(sessionID string) error {
	key := fmt.Sprintf("resolving:%s", sessionID)
	return s.client.Del(s.ctx, key).Err()
}

var updateUserStatsScript = redis.NewScript(`
	local key = KEYS[1]
	local gambled = tonumber(ARGV[1])
	local won = tonumber(ARGV[2])

	local data = redis.call("GET", key)
	local stats
	if data then
		stats = cjson.decode(data)
	else
		stats = {totalGambled=0, totalWon=0, gamesPlayed=0, biggestWin=0}
	end

	stats.totalGambled = stats.totalGambled + gambled
	stats.totalWon = stats.totalWon + won
	stats.gamesPlayed = stats.gamesPlayed + 1
	if won > stats.biggestWin then
		stats.biggestWin = won
	end

	redis.call("SET", key, cjson.encode(stats))
	return "OK"
`)

var updateGlobalStatsScript = redis.NewScript(`
	local key = KEYS[1]
	local gambled = tonumber(ARGV[1])
	local won = tonumber(ARGV[2])
	local jackpot = tonumber(ARGV[3])

	redis.call("HINCRBY", key, "gamesPlayed", 1)
	redis.call("HINCRBY", key, "totalGambled", gambled)
	redis.call("HINCRBY", key, "totalWon", won)
	if jackpot == 1 then
		redis.call("HINCRBY", key, "jackpotsWon", 1)
	end

	local biggest = tonumber(redis.call("HGET", key, "biggestWin") or "0")
	if won > biggest then
		redis.call("HSET", key, "biggestWin", won)
	end
	return "OK"
`)

// RecordResolution appends the event record and rolls it into the per-wallet
// and global aggregates plus the leaderboard ZSETs. The read-modify-write
// parts run as Lua scripts so concurrent resolutions cannot lose updates.
func (s *RedisService) RecordResolution(event *models.GambleEvent) error {
	eventKey := fmt.Sprintf(KeyGambleEvent, event.WalletAddress, event.Timestamp)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal gamble event: %v", err)
	}

	if err := s.client.Set(s.ctx, eventKey, data, TTLGambleEvent).Err(); err != nil {
		return fmt.Errorf("failed to append gamble event: %v", err)
	}

	userKey := fmt.Sprintf(KeyUserStats, event.WalletAddress)
	if err := updateUserStatsScript.Run(s.ctx, s.client,
		[]string{userKey}, event.AmountGambled, event.AmountWon).Err(); err != nil {
		return fmt.Errorf("failed to update user stats: %v", err)
	}

	jackpot := 0
	if event.Tier == "JACKPOT" {
		jackpot = 1
	}
	if err := updateGlobalStatsScript.Run(s.ctx, s.client,
		[]string{KeyGlobalStats}, event.AmountGambled, event.AmountWon, jackpot).Err(); err != nil {
		return fmt.Errorf("failed to update global stats: %v", err)
	}

	pipe := s.client.Pipeline()
	pipe.ZIncrBy(s.ctx, KeyLeaderboardWon, float64(event.AmountWon), event.WalletAddress)
	pipe.ZIncrBy(s.ctx, KeyLeaderboardPlayed, 1, event.WalletAddress)
	pipe.ZAddGT(s.ctx, KeyLeaderboardBiggest, redis.Z{
		Score:  float64(event.AmountWon),
		Member: event.WalletAddress,
	})
	if _, err := pipe.Exec(s.ctx); err != nil {
		return fmt.Errorf("failed to update leaderboards: %v", err)
	}

	return nil
}

func (s *RedisService) GetUserStats(walletAddress string) (*models.UserStats, error) {
	key := fmt.Sprintf(KeyUserStats, walletAddress)

	data, err := s.client.Get(s.ctx, key).Result()
	if err == redis.Nil {
		return &models.UserStats{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %v", err)
	}

	var stats models.UserStats
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user stats: %v", err)
	}

	return &stats, nil
}

// AddToPool moves the fountain pool counter by delta (staked minus paid out)
// and returns the new total.
func (s *RedisService) AddToPool(delta int64) (int64, error) {
	return s.client.IncrBy(s.ctx, KeyFountainPool, delta).Result()
}

func (s *RedisService) PoolTotal() (int64, error) {
	data, err := s.client.Get(s.ctx, KeyFountainPool).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get pool total: %v", err)
	}
	return strconv.ParseInt(data, 10, 64)
}

func (s *RedisService) GetGlobalStats() (map[string]int64, error) {
	fields, err := s.client.HGetAll(s.ctx, KeyGlobalStats).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get global stats: %v", err)
	}

	stats := make(map[string]int64, len(fields))
	for k, v := range fields {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		stats[k] = n
	}
	return stats, nil
}

type ScoredWallet struct {
	WalletAddress string
	Score         int64
}

func (s *RedisService) TopWallets(leaderboardKey string, limit int64) ([]ScoredWallet, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	entries, err := s.client.ZRevRangeWithScores(s.ctx, leaderboardKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard %s: %v", leaderboardKey, err)
	}

	wallets := make([]ScoredWallet, 0, len(entries))
	for _, e := range entries {
		wallet, ok := e.Member.(string)
		if !ok {
			continue
		}
		wallets = append(wallets, ScoredWallet{
			WalletAddress: wallet,
			Score:         int64(e.Score),
		})
	}
	return wallets, nil
}

// ScanPending walks all pending:<wallet> locks. Used by the staleness sweeper.
func (s *RedisService) ScanPending() ([]*models.GamblingSession, error) {
	var sessions []*models.GamblingSession
	var cursor uint64

	for {
		keys, next, err := s.client.Scan(s.ctx, cursor, "pending:*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending sessions: %v", err)
		}

		for _, key := range keys {
			data, err := s.client.Get(s.ctx, key).Result()
			if err != nil {
				continue
			}
			var session models.GamblingSession
			if err := json.Unmarshal([]byte(data), &session); err != nil {
				continue
			}
			sessions = append(sessions, &session)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return sessions, nil
}
