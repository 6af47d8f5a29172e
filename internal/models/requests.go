package models

import "fmt"

type StartRequest struct {
	WalletAddress string `json:"walletAddress"`
	ClientSeed    string `json:"clientSeed"`
}

func (r *StartRequest) Validate() error {
	if r.WalletAddress == "" {
		return fmt.Errorf("wallet address required")
	}
	return nil
}

type ResolveRequest struct {
	SessionID   string `json:"sessionId"`
	TxSignature string `json:"txSignature"`
}

func (r *ResolveRequest) Validate() error {
	if r.SessionID == "" || r.TxSignature == "" {
		return fmt.Errorf("session ID and transaction signature required")
	}
	return nil
}

type ClearRequest struct {
	WalletAddress string `json:"walletAddress"`
}

func (r *ClearRequest) Validate() error {
	if r.WalletAddress == "" {
		return fmt.Errorf("wallet address required")
	}
	return nil
}
