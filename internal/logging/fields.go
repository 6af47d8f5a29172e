package logging

// Standard field name constants for structured logging.
const (
	FieldComponent = "component"

	FieldWallet    = "wallet"
	FieldSessionID = "session_id"
	FieldTxSig     = "tx_sig"

	FieldTier       = "tier"
	FieldMultiplier = "multiplier"
	FieldPayout     = "payout"
	FieldPool       = "pool"

	FieldAge      = "age"
	FieldPlayerID = "player_id"
	FieldCount    = "count"
)
