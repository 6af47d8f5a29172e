package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/WishingWellCode/Wishing/internal/chain"
	"github.com/WishingWellCode/Wishing/internal/logging"
	"github.com/WishingWellCode/Wishing/internal/models"
	"github.com/WishingWellCode/Wishing/internal/observability"
)

// FountainService owns the gambling session lifecycle:
// no-session -> pending -> resolved, with resolved terminal.
type FountainService struct {
	store       *RedisService
	verifier    chain.Verifier
	payer       chain.Payer
	broadcaster Broadcaster
	burnAddress string
	log         logging.Logger

	rollFn RollFunc
}

func NewFountainService(store *RedisService, verifier chain.Verifier, payer chain.Payer,
	broadcaster Broadcaster, burnAddress string, log logging.Logger) *FountainService {
	if broadcaster == nil {
		broadcaster = NoopBroadcaster{}
	}
	return &FountainService{
		store:       store,
		verifier:    verifier,
		payer:       payer,
		broadcaster: broadcaster,
		burnAddress: burnAddress,
		log:         log.With().Str(logging.FieldComponent, "fountain").Logger(),
		rollFn:      Roll,
	}
}

// StartResult is what the client gets at session start. The server seed is
// deliberately absent; it is withheld until resolution.
type StartResult struct {
	SessionID    string
	ServerCommit string
	ClientSeed   string
	BurnAddress  string
	ExactStake   int64
}

// Start creates a pending session for the wallet unless a fresh one already
// exists. A stale pending session (and its orphaned record) is silently
// evicted and replaced.
func (f *FountainService) Start(ctx context.Context, walletAddress, clientSeed string) (*StartResult, error) {
	if clientSeed == "" {
		seed, err := models.GenerateClientSeed()
		if err != nil {
			return nil, err
		}
		clientSeed = seed
	}

	serverSeed := models.GenerateServerSeed()
	session := &models.GamblingSession{
		SessionID:     models.GenerateSessionID(),
		WalletAddress: walletAddress,
		ServerSeed:    serverSeed,
		ServerCommit:  CommitHex(serverSeed),
		ClientSeed:    clientSeed,
		Status:        models.StatusPending,
		Timestamp:     time.Now(),
	}

	// Two attempts: the second covers the case where we evicted a stale
	// lock, or where the lock expired between SETNX and GET.
	for attempt := 0; attempt < 2; attempt++ {
		acquired, existing, err := f.store.TryAcquirePending(session)
		if err != nil {
			return nil, err
		}

		if acquired {
			if err := f.store.SaveSession(session); err != nil {
				f.store.DeletePending(walletAddress)
				return nil, err
			}
			f.log.Info().
				Str(logging.FieldWallet, walletAddress).
				Str(logging.FieldSessionID, session.SessionID).
				Msg("session started")
			return &StartResult{
				SessionID:    session.SessionID,
				ServerCommit: session.ServerCommit,
				ClientSeed:   session.ClientSeed,
				BurnAddress:  f.burnAddress,
				ExactStake:   ExactStake,
			}, nil
		}

		if existing == nil {
			continue
		}

		if !existing.Stale(PendingMaxAge) {
			return nil, &ConflictError{SessionID: existing.SessionID, Age: existing.Age()}
		}

		f.log.Info().
			Str(logging.FieldWallet, walletAddress).
			Str(logging.FieldSessionID, existing.SessionID).
			Dur(logging.FieldAge, existing.Age()).
			Msg("evicting stale pending session")
		f.store.DeletePending(walletAddress)
		f.store.DeleteSession(existing.SessionID)
	}

	return nil, fmt.Errorf("could not acquire pending session for %s", walletAddress)
}

// Resolve verifies the burn, derives the outcome, pays any winnings, and
// flips the session to resolved exactly once. A payout failure does not fail
// the resolution: the stake is already burned at that point, so the session
// records a failure sentinel for manual reconciliation instead.
func (f *FountainService) Resolve(ctx context.Context, sessionID, txSignature string) (*models.GamblingSession, error) {
	session, err := f.store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.Status != models.StatusPending {
		return nil, ErrAlreadyResolved
	}

	locked, err := f.store.TryMarkResolving(sessionID)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrAlreadyResolved
	}
	defer f.store.UnmarkResolving(sessionID)

	if err := f.verifier.VerifyBurn(ctx, txSignature, session.WalletAddress); err != nil {
		f.log.Warn().
			Str(logging.FieldSessionID, sessionID).
			Str(logging.FieldTxSig, txSignature).
			Err(err).
			Msg("burn verification failed")
		return nil, fmt.Errorf("%w: %v", ErrBurnNotVerified, err)
	}

	result := f.rollFn(session.ServerSeed, session.ClientSeed, txSignature)
	payout := PayoutFor(ExactStake, result.Multiplier)

	payoutTx := ""
	if payout > 0 {
		tx, err := f.payer.SendPayout(ctx, session.WalletAddress, payout)
		if err != nil {
			// Stake is already consumed; degrade to owed-but-unpaid.
			f.log.Error().
				Str(logging.FieldSessionID, sessionID).
				Str(logging.FieldWallet, session.WalletAddress).
				Int64(logging.FieldPayout, payout).
				Err(err).
				Msg("payout failed, flagged for manual reconciliation")
			payoutTx = "FAILED_" + uuid.New().String()
			observability.PayoutFailures.Inc()
		} else {
			payoutTx = tx
			observability.PayoutsSent.Inc()
		}
	}

	session.Status = models.StatusResolved
	session.Result = &models.SessionResult{
		Tier:       result.Tier,
		Multiplier: result.Multiplier,
		Payout:     payout,
		PayoutTx:   payoutTx,
		BurnTx:     txSignature,
	}

	if err := f.store.SaveSession(session); err != nil {
		return nil, fmt.Errorf("failed to persist resolved session: %v", err)
	}
	if err := f.store.DeletePending(session.WalletAddress); err != nil {
		f.log.Warn().
			Str(logging.FieldWallet, session.WalletAddress).
			Err(err).
			Msg("failed to delete pending lock after resolution")
	}

	event := &models.GambleEvent{
		WalletAddress: session.WalletAddress,
		SessionID:     sessionID,
		Timestamp:     time.Now().UnixMilli(),
		AmountGambled: ExactStake,
		Tier:          result.Tier,
		Multiplier:    result.Multiplier,
		AmountWon:     payout,
	}
	if err := f.store.RecordResolution(event); err != nil {
		f.log.Warn().
			Str(logging.FieldSessionID, sessionID).
			Err(err).
			Msg("failed to record gamble event")
	}

	pool, err := f.store.AddToPool(ExactStake - payout)
	if err != nil {
		f.log.Warn().Err(err).Msg("failed to update fountain pool")
	} else {
		observability.FountainPool.Set(float64(pool))
	}

	observability.GamesResolved.WithLabelValues(result.Tier).Inc()
	if result.Tier == "JACKPOT" {
		observability.JackpotsWon.Inc()
	}

	f.log.Info().
		Str(logging.FieldSessionID, sessionID).
		Str(logging.FieldWallet, session.WalletAddress).
		Str(logging.FieldTier, result.Tier).
		Float64(logging.FieldMultiplier, result.Multiplier).
		Int64(logging.FieldPayout, payout).
		Msg("session resolved")

	f.broadcaster.FountainUpdate(pool, session.Result)

	return session, nil
}

// Clear unconditionally removes the wallet's pending lock and its referenced
// session record, regardless of age. Escape hatch for clients stuck after a
// start whose resolve never happened.
func (f *FountainService) Clear(ctx context.Context, walletAddress string) error {
	pending, err := f.store.GetPendingSession(walletAddress)
	if err != nil {
		return err
	}
	if pending == nil {
		return nil
	}

	if err := f.store.DeletePending(walletAddress); err != nil {
		return err
	}
	if err := f.store.DeleteSession(pending.SessionID); err != nil {
		return err
	}

	f.log.Info().
		Str(logging.FieldWallet, walletAddress).
		Str(logging.FieldSessionID, pending.SessionID).
		Msg("session cleared")
	return nil
}

// SweepStale evicts every pending session older than PendingMaxAge. Run
// periodically from main.
func (f *FountainService) SweepStale(ctx context.Context) (int, error) {
	sessions, err := f.store.ScanPending()
	if err != nil {
		return 0, err
	}

	evicted := 0
	for _, session := range sessions {
		if !session.Stale(PendingMaxAge) {
			continue
		}
		f.store.DeletePending(session.WalletAddress)
		f.store.DeleteSession(session.SessionID)
		evicted++
	}

	if evicted > 0 {
		f.log.Info().Int(logging.FieldCount, evicted).Msg("swept stale pending sessions")
	}
	return evicted, nil
}
