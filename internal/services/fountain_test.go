package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/WishingWellCode/Wishing/internal/logging"
	"github.com/WishingWellCode/Wishing/internal/models"
)

const testBurnAddress = "11111111111111111111111111111111"

type stubVerifier struct {
	err error
}

func (s *stubVerifier) VerifyBurn(ctx context.Context, txSignature, walletAddress string) error {
	return s.err
}

type stubPayer struct {
	tx         string
	err        error
	calls      int
	lastWallet string
	lastAmount int64
}

func (s *stubPayer) SendPayout(ctx context.Context, recipientWallet string, amount int64) (string, error) {
	s.calls++
	s.lastWallet = recipientWallet
	s.lastAmount = amount
	if s.err != nil {
		return "", s.err
	}
	return s.tx, nil
}

func newTestFountain(t *testing.T, verifier *stubVerifier, payer *stubPayer) (*FountainService, *RedisService) {
	t.Helper()

	mr := miniredis.RunT(t)
	store := NewRedisServiceFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { store.Close() })

	fountain := NewFountainService(store, verifier, payer, nil, testBurnAddress, logging.Nop())
	return fountain, store
}

func pinRoll(f *FountainService, tier string, multiplier float64) {
	f.rollFn = func(serverSeed, clientSeed, txSignature string) TierResult {
		return TierResult{Tier: tier, Multiplier: multiplier}
	}
}

func TestStartSession(t *testing.T) {
	fountain, store := newTestFountain(t, &stubVerifier{}, &stubPayer{})
	ctx := context.Background()

	start, err := fountain.Start(ctx, "wallet-1", "my-client-seed")
	require.NoError(t, err)

	require.NotEmpty(t, start.SessionID)
	require.Len(t, start.ServerCommit, 64)
	require.Equal(t, "my-client-seed", start.ClientSeed)
	require.Equal(t, testBurnAddress, start.BurnAddress)
	require.Equal(t, ExactStake, start.ExactStake)

	pending, err := store.GetPendingSession("wallet-1")
	require.NoError(t, err)
	require.NotNil(t, pending)
	require.Equal(t, start.SessionID, pending.SessionID)
	require.Equal(t, models.StatusPending, pending.Status)

	// The commitment must bind the stored seed, which the client never saw.
	require.NotEmpty(t, pending.ServerSeed)
	require.Equal(t, CommitHex(pending.ServerSeed), start.ServerCommit)

	record, err := store.GetSession(start.SessionID)
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, "wallet-1", record.WalletAddress)
}

func TestStartGeneratesClientSeedWhenAbsent(t *testing.T) {
	fountain, _ := newTestFountain(t, &stubVerifier{}, &stubPayer{})

	start, err := fountain.Start(context.Background(), "wallet-1", "")
	require.NoError(t, err)
	require.Len(t, start.ClientSeed, 32)
}

func TestStartRejectsFreshPending(t *testing.T) {
	fountain, store := newTestFountain(t, &stubVerifier{}, &stubPayer{})
	ctx := context.Background()

	first, err := fountain.Start(ctx, "wallet-1", "seed")
	require.NoError(t, err)

	_, err = fountain.Start(ctx, "wallet-1", "seed")
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, first.SessionID, conflict.SessionID)

	// The original pending session must be untouched.
	pending, err := store.GetPendingSession("wallet-1")
	require.NoError(t, err)
	require.Equal(t, first.SessionID, pending.SessionID)
}

func TestStartEvictsStalePending(t *testing.T) {
	fountain, store := newTestFountain(t, &stubVerifier{}, &stubPayer{})
	ctx := context.Background()

	stale := &models.GamblingSession{
		SessionID:     models.GenerateSessionID(),
		WalletAddress: "wallet-1",
		ServerSeed:    models.GenerateServerSeed(),
		ClientSeed:    "seed",
		Status:        models.StatusPending,
		Timestamp:     time.Now().Add(-PendingMaxAge - time.Minute),
	}
	stale.ServerCommit = CommitHex(stale.ServerSeed)

	acquired, _, err := store.TryAcquirePending(stale)
	require.NoError(t, err)
	require.True(t, acquired)
	require.NoError(t, store.SaveSession(stale))

	start, err := fountain.Start(ctx, "wallet-1", "seed")
	require.NoError(t, err)
	require.NotEqual(t, stale.SessionID, start.SessionID)

	// The orphaned record goes with the lock.
	gone, err := store.GetSession(stale.SessionID)
	require.NoError(t, err)
	require.Nil(t, gone)
}

func TestResolveLose(t *testing.T) {
	payer := &stubPayer{tx: "PAYTX"}
	fountain, store := newTestFountain(t, &stubVerifier{}, payer)
	ctx := context.Background()

	start, err := fountain.Start(ctx, "wallet-1", "seed")
	require.NoError(t, err)

	pinRoll(fountain, "LOSE", 0)

	session, err := fountain.Resolve(ctx, start.SessionID, "burnsig")
	require.NoError(t, err)

	require.Equal(t, models.StatusResolved, session.Status)
	require.NotNil(t, session.Result)
	require.Equal(t, "LOSE", session.Result.Tier)
	require.Equal(t, int64(0), session.Result.Payout)
	require.Empty(t, session.Result.PayoutTx)
	require.Equal(t, "burnsig", session.Result.BurnTx)
	require.Equal(t, 0, payer.calls, "losing sessions must not pay out")

	pending, err := store.GetPendingSession("wallet-1")
	require.NoError(t, err)
	require.Nil(t, pending, "pending lock must be released")

	pool, err := store.PoolTotal()
	require.NoError(t, err)
	require.Equal(t, ExactStake, pool)

	stats, err := store.GetUserStats("wallet-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.GamesPlayed)
	require.Equal(t, ExactStake, stats.TotalGambled)
	require.Equal(t, int64(0), stats.TotalWon)
}

func TestResolveJackpot(t *testing.T) {
	payer := &stubPayer{tx: "PAYTX"}
	fountain, store := newTestFountain(t, &stubVerifier{}, payer)
	ctx := context.Background()

	start, err := fountain.Start(ctx, "wallet-1", "seed")
	require.NoError(t, err)

	pinRoll(fountain, "JACKPOT", 15000)

	session, err := fountain.Resolve(ctx, start.SessionID, "burnsig")
	require.NoError(t, err)

	require.Equal(t, "JACKPOT", session.Result.Tier)
	require.Equal(t, int64(15000000), session.Result.Payout)
	require.Equal(t, "PAYTX", session.Result.PayoutTx)

	require.Equal(t, 1, payer.calls)
	require.Equal(t, "wallet-1", payer.lastWallet)
	require.Equal(t, int64(15000000), payer.lastAmount)

	// Pool drops by the net amount paid beyond the stake.
	pool, err := store.PoolTotal()
	require.NoError(t, err)
	require.Equal(t, ExactStake-int64(15000000), pool)

	stats, err := store.GetUserStats("wallet-1")
	require.NoError(t, err)
	require.Equal(t, int64(15000000), stats.BiggestWin)
}

func TestResolveRevealAllowsVerification(t *testing.T) {
	fountain, _ := newTestFountain(t, &stubVerifier{}, &stubPayer{tx: "PAYTX"})
	ctx := context.Background()

	start, err := fountain.Start(ctx, "wallet-1", "client-seed")
	require.NoError(t, err)

	session, err := fountain.Resolve(ctx, start.SessionID, "burnsig")
	require.NoError(t, err)

	// The revealed seed must hash to the pre-play commitment, and replaying
	// the roll from the revealed inputs must reproduce the recorded tier.
	require.Equal(t, start.ServerCommit, CommitHex(session.ServerSeed))
	replay := Roll(session.ServerSeed, session.ClientSeed, "burnsig")
	require.Equal(t, session.Result.Tier, replay.Tier)
	require.Equal(t, session.Result.Multiplier, replay.Multiplier)
}

func TestResolveTwicePaysAtMostOnce(t *testing.T) {
	payer := &stubPayer{tx: "PAYTX"}
	fountain, _ := newTestFountain(t, &stubVerifier{}, payer)
	ctx := context.Background()

	start, err := fountain.Start(ctx, "wallet-1", "seed")
	require.NoError(t, err)

	pinRoll(fountain, "JACKPOT", 15000)

	_, err = fountain.Resolve(ctx, start.SessionID, "burnsig")
	require.NoError(t, err)

	_, err = fountain.Resolve(ctx, start.SessionID, "burnsig")
	require.ErrorIs(t, err, ErrAlreadyResolved)
	require.Equal(t, 1, payer.calls)
}

func TestResolveUnknownSession(t *testing.T) {
	fountain, _ := newTestFountain(t, &stubVerifier{}, &stubPayer{})

	_, err := fountain.Resolve(context.Background(), "no-such-session", "burnsig")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestResolveFailedBurnLeavesSessionPending(t *testing.T) {
	payer := &stubPayer{tx: "PAYTX"}
	verifier := &stubVerifier{err: errors.New("no burn found")}
	fountain, store := newTestFountain(t, verifier, payer)
	ctx := context.Background()

	start, err := fountain.Start(ctx, "wallet-1", "seed")
	require.NoError(t, err)

	_, err = fountain.Resolve(ctx, start.SessionID, "burnsig")
	require.ErrorIs(t, err, ErrBurnNotVerified)
	require.Equal(t, 0, payer.calls)

	// Session stays pending so the client can retry with a valid burn.
	session, err := store.GetSession(start.SessionID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, session.Status)

	pending, err := store.GetPendingSession("wallet-1")
	require.NoError(t, err)
	require.NotNil(t, pending)

	// Retry with the verifier now passing.
	verifier.err = nil
	resolved, err := fountain.Resolve(ctx, start.SessionID, "burnsig")
	require.NoError(t, err)
	require.Equal(t, models.StatusResolved, resolved.Status)
}

func TestResolvePayoutFailureStillResolves(t *testing.T) {
	payer := &stubPayer{err: errors.New("rpc unreachable")}
	fountain, store := newTestFountain(t, &stubVerifier{}, payer)
	ctx := context.Background()

	start, err := fountain.Start(ctx, "wallet-1", "seed")
	require.NoError(t, err)

	pinRoll(fountain, "MEDIUM WIN", 9)

	session, err := fountain.Resolve(ctx, start.SessionID, "burnsig")
	require.NoError(t, err, "a payout failure must not fail the resolution")

	require.Equal(t, models.StatusResolved, session.Status)
	require.Equal(t, int64(9000), session.Result.Payout)
	require.True(t, strings.HasPrefix(session.Result.PayoutTx, "FAILED_"),
		"got payout tx %q", session.Result.PayoutTx)

	_, err = fountain.Resolve(ctx, start.SessionID, "burnsig")
	require.ErrorIs(t, err, ErrAlreadyResolved)

	pending, err := store.GetPendingSession("wallet-1")
	require.NoError(t, err)
	require.Nil(t, pending)
}

func TestClearSession(t *testing.T) {
	fountain, store := newTestFountain(t, &stubVerifier{}, &stubPayer{})
	ctx := context.Background()

	start, err := fountain.Start(ctx, "wallet-1", "seed")
	require.NoError(t, err)

	require.NoError(t, fountain.Clear(ctx, "wallet-1"))

	pending, err := store.GetPendingSession("wallet-1")
	require.NoError(t, err)
	require.Nil(t, pending)

	record, err := store.GetSession(start.SessionID)
	require.NoError(t, err)
	require.Nil(t, record)

	// Clearing a wallet with nothing pending is a no-op.
	require.NoError(t, fountain.Clear(ctx, "wallet-2"))
}

func TestSweepStale(t *testing.T) {
	fountain, store := newTestFountain(t, &stubVerifier{}, &stubPayer{})
	ctx := context.Background()

	fresh, err := fountain.Start(ctx, "wallet-fresh", "seed")
	require.NoError(t, err)

	stale := &models.GamblingSession{
		SessionID:     models.GenerateSessionID(),
		WalletAddress: "wallet-stale",
		ServerSeed:    models.GenerateServerSeed(),
		ClientSeed:    "seed",
		Status:        models.StatusPending,
		Timestamp:     time.Now().Add(-PendingMaxAge - time.Minute),
	}
	stale.ServerCommit = CommitHex(stale.ServerSeed)
	acquired, _, err := store.TryAcquirePending(stale)
	require.NoError(t, err)
	require.True(t, acquired)
	require.NoError(t, store.SaveSession(stale))

	evicted, err := fountain.SweepStale(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, evicted)

	pending, err := store.GetPendingSession("wallet-fresh")
	require.NoError(t, err)
	require.NotNil(t, pending)
	require.Equal(t, fresh.SessionID, pending.SessionID)

	gone, err := store.GetPendingSession("wallet-stale")
	require.NoError(t, err)
	require.Nil(t, gone)
}
