// Package chain holds the service's two blockchain collaborators: burn
// verification and custodial payouts. Both are interfaces so the lifecycle
// can be tested without a network.
package chain

import (
	"context"
	"errors"
)

var (
	ErrTxNotFound   = errors.New("transaction not found")
	ErrTxFailed     = errors.New("transaction failed on-chain")
	ErrBurnMismatch = errors.New("burn amount mismatch")
)

// Verifier confirms that a claimed burn transaction landed and, when a token
// mint is configured, that it actually burned the stake from the claiming
// wallet.
type Verifier interface {
	VerifyBurn(ctx context.Context, txSignature, walletAddress string) error
}

// Payer sends tokens from the custodial pool wallet to a winner and returns
// the transaction signature. It submits at most once per call; a
// confirmation timeout is not a failure.
type Payer interface {
	SendPayout(ctx context.Context, recipientWallet string, amount int64) (string, error)
}

// UnconfiguredPayer is wired when no pool wallet key is present. Every payout
// attempt fails, which the lifecycle records as owed-but-unpaid.
type UnconfiguredPayer struct{}

func (UnconfiguredPayer) SendPayout(ctx context.Context, recipientWallet string, amount int64) (string, error) {
	return "", errors.New("pool wallet private key not configured")
}
