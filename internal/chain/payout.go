package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	ata "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/WishingWellCode/Wishing/internal/logging"
)

const (
	confirmTimeout      = 45 * time.Second
	confirmPollInterval = 2 * time.Second
)

// SolanaPayer issues token transfers from the custodial pool wallet. It
// derives both associated token accounts, creates the recipient's in the
// same transaction if it does not exist yet, and converts the amount using
// the decimals read from the mint account rather than a hardcoded count.
//
// Confirmation is awaited on a bounded background pool; a timeout is logged
// and treated as probable success since the transaction may still land. The
// transfer is never resubmitted.
type SolanaPayer struct {
	client  *rpc.Client
	mint    solana.PublicKey
	pool    solana.PrivateKey
	poolPub solana.PublicKey
	log     logging.Logger

	mu             sync.Mutex
	decimals       uint8
	decimalsLoaded bool

	confirmers pond.Pool
}

func NewSolanaPayer(rpcURL, mint, poolWalletKey string, log logging.Logger) (*SolanaPayer, error) {
	if poolWalletKey == "" {
		return nil, errors.New("pool wallet private key not configured")
	}

	priv, err := parsePoolKey(poolWalletKey)
	if err != nil {
		return nil, fmt.Errorf("invalid pool wallet private key: %w", err)
	}

	mintPk, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return nil, fmt.Errorf("invalid token mint %q: %w", mint, err)
	}

	return &SolanaPayer{
		client:     rpc.New(rpcURL),
		mint:       mintPk,
		pool:       priv,
		poolPub:    priv.PublicKey(),
		log:        log.With().Str(logging.FieldComponent, "payer").Logger(),
		confirmers: pond.NewPool(4),
	}, nil
}

// parsePoolKey accepts either a base58 string or the JSON byte-array form
// that solana-keygen writes.
func parsePoolKey(raw string) (solana.PrivateKey, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(raw), &ints); err != nil {
			return nil, fmt.Errorf("failed to parse key byte array: %w", err)
		}
		key := make(solana.PrivateKey, len(ints))
		for i, n := range ints {
			if n < 0 || n > 255 {
				return nil, fmt.Errorf("key byte %d out of range", n)
			}
			key[i] = byte(n)
		}
		return key, nil
	}
	return solana.PrivateKeyFromBase58(raw)
}

func (p *SolanaPayer) SendPayout(ctx context.Context, recipientWallet string, amount int64) (string, error) {
	recipient, err := solana.PublicKeyFromBase58(recipientWallet)
	if err != nil {
		return "", fmt.Errorf("invalid recipient wallet: %w", err)
	}

	decimals, err := p.tokenDecimals(ctx)
	if err != nil {
		return "", fmt.Errorf("query mint decimals: %w", err)
	}

	baseUnits, err := BaseUnits(amount, decimals)
	if err != nil {
		return "", err
	}

	poolATA, _, err := solana.FindAssociatedTokenAddress(p.poolPub, p.mint)
	if err != nil {
		return "", fmt.Errorf("derive pool token account: %w", err)
	}
	recipientATA, _, err := solana.FindAssociatedTokenAddress(recipient, p.mint)
	if err != nil {
		return "", fmt.Errorf("derive recipient token account: %w", err)
	}

	var instructions []solana.Instruction
	exists, err := p.accountExists(ctx, recipientATA)
	if err != nil {
		return "", fmt.Errorf("check recipient token account: %w", err)
	}
	if !exists {
		p.log.Info().
			Str(logging.FieldWallet, recipientWallet).
			Msg("creating token account for recipient")
		instructions = append(instructions,
			ata.NewCreateInstruction(p.poolPub, recipient, p.mint).Build())
	}

	instructions = append(instructions,
		token.NewTransferCheckedInstruction(
			baseUnits,
			decimals,
			poolATA,
			p.mint,
			recipientATA,
			p.poolPub,
			nil,
		).Build())

	recent, err := p.client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return "", fmt.Errorf("fetch blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, recent.Value.Blockhash,
		solana.TransactionPayer(p.poolPub))
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(p.poolPub) {
			return &p.pool
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	sig, err := p.client.SendTransaction(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("submit transaction: %w", err)
	}

	p.log.Info().
		Str(logging.FieldWallet, recipientWallet).
		Int64(logging.FieldPayout, amount).
		Str(logging.FieldTxSig, sig.String()).
		Msg("payout submitted")

	p.confirmers.Submit(func() {
		p.awaitConfirmation(sig)
	})

	return sig.String(), nil
}

func (p *SolanaPayer) tokenDecimals(ctx context.Context) (uint8, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.decimalsLoaded {
		return p.decimals, nil
	}

	acct, err := p.client.GetAccountInfo(ctx, p.mint)
	if err != nil {
		return 0, err
	}
	if acct == nil || acct.Value == nil {
		return 0, fmt.Errorf("mint account %s not found", p.mint)
	}

	var mint token.Mint
	if err := bin.NewBinDecoder(acct.Value.Data.GetBinary()).Decode(&mint); err != nil {
		return 0, fmt.Errorf("decode mint account: %w", err)
	}

	p.decimals = mint.Decimals
	p.decimalsLoaded = true
	return p.decimals, nil
}

func (p *SolanaPayer) accountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	acct, err := p.client.GetAccountInfo(ctx, account)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return acct != nil && acct.Value != nil, nil
}

func (p *SolanaPayer) awaitConfirmation(sig solana.Signature) {
	ctx, cancel := context.WithTimeout(context.Background(), confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Warn().
				Str(logging.FieldTxSig, sig.String()).
				Msg("payout confirmation timed out; transaction may still land")
			return
		case <-ticker.C:
			out, err := p.client.GetSignatureStatuses(ctx, true, sig)
			if err != nil || out == nil || len(out.Value) == 0 || out.Value[0] == nil {
				continue
			}
			status := out.Value[0]
			if status.Err != nil {
				p.log.Error().
					Str(logging.FieldTxSig, sig.String()).
					Msg("payout transaction failed after submission")
				return
			}
			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
				p.log.Info().
					Str(logging.FieldTxSig, sig.String()).
					Msg("payout confirmed")
				return
			}
		}
	}
}

// Close drains the confirmation pool.
func (p *SolanaPayer) Close() {
	p.confirmers.StopAndWait()
}

// BaseUnits converts a whole-token amount to the mint's base-unit integer
// representation.
func BaseUnits(amount int64, decimals uint8) (uint64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("negative payout amount %d", amount)
	}
	units := uint64(amount)
	for i := uint8(0); i < decimals; i++ {
		if units > math.MaxUint64/10 {
			return 0, fmt.Errorf("payout amount %d overflows at %d decimals", amount, decimals)
		}
		units *= 10
	}
	return units, nil
}
