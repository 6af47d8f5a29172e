package chain

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/WishingWellCode/Wishing/internal/logging"
)

// SolanaVerifier checks burn transactions at confirmed commitment. With a
// mint configured it additionally requires the claiming wallet's balance of
// that mint to have dropped by at least the stake, closing the gap where any
// successful transaction could claim to be a burn.
type SolanaVerifier struct {
	client    *rpc.Client
	mint      solana.PublicKey
	checkMint bool
	stake     int64
	log       logging.Logger
}

func NewSolanaVerifier(rpcURL, mint string, stake int64, log logging.Logger) (*SolanaVerifier, error) {
	v := &SolanaVerifier{
		client: rpc.New(rpcURL),
		stake:  stake,
		log:    log.With().Str(logging.FieldComponent, "verifier").Logger(),
	}

	if mint != "" {
		pk, err := solana.PublicKeyFromBase58(mint)
		if err != nil {
			return nil, fmt.Errorf("invalid token mint %q: %w", mint, err)
		}
		v.mint = pk
		v.checkMint = true
	} else {
		v.log.Warn().Msg("no token mint configured; burn amount verification disabled")
	}

	return v, nil
}

func (v *SolanaVerifier) VerifyBurn(ctx context.Context, txSignature, walletAddress string) error {
	sig, err := solana.SignatureFromBase58(txSignature)
	if err != nil {
		return fmt.Errorf("invalid transaction signature: %w", err)
	}

	out, err := v.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return ErrTxNotFound
		}
		return fmt.Errorf("query transaction: %w", err)
	}
	if out == nil || out.Meta == nil {
		return ErrTxNotFound
	}
	if out.Meta.Err != nil {
		return ErrTxFailed
	}

	if !v.checkMint {
		return nil
	}

	owner, err := solana.PublicKeyFromBase58(walletAddress)
	if err != nil {
		return fmt.Errorf("invalid wallet address: %w", err)
	}

	burned, decimals := tokenBalanceDelta(out.Meta, owner, v.mint)
	required := v.stake
	for i := uint8(0); i < decimals; i++ {
		required *= 10
	}
	if burned < required {
		v.log.Warn().
			Str(logging.FieldTxSig, txSignature).
			Str(logging.FieldWallet, walletAddress).
			Int64("burned", burned).
			Int64("required", required).
			Msg("burn amount below stake")
		return ErrBurnMismatch
	}

	return nil
}

// tokenBalanceDelta returns how many base units of mint the owner's token
// accounts lost in the transaction, along with the mint's decimals as
// reported in the balance meta.
func tokenBalanceDelta(meta *rpc.TransactionMeta, owner, mint solana.PublicKey) (int64, uint8) {
	pre, decimals := summedBalance(meta.PreTokenBalances, owner, mint)
	post, _ := summedBalance(meta.PostTokenBalances, owner, mint)
	return pre - post, decimals
}

func summedBalance(balances []rpc.TokenBalance, owner, mint solana.PublicKey) (int64, uint8) {
	var total int64
	var decimals uint8
	for _, b := range balances {
		if b.Owner == nil || !b.Owner.Equals(owner) || !b.Mint.Equals(mint) {
			continue
		}
		if b.UiTokenAmount == nil {
			continue
		}
		amount, err := strconv.ParseInt(b.UiTokenAmount.Amount, 10, 64)
		if err != nil {
			continue
		}
		total += amount
		decimals = b.UiTokenAmount.Decimals
	}
	return total, decimals
}
