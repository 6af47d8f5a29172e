package services

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
)

type TierResult struct {
	Tier       string  `json:"tier"`
	Multiplier float64 `json:"multiplier"`
}

// RollFunc derives a tier from the commit-reveal inputs. The lifecycle holds
// one so tests can pin specific outcomes.
type RollFunc func(serverSeed, clientSeed, txSignature string) TierResult

// Cumulative probability thresholds, checked in ascending order; the first
// bound the roll falls under wins. Anything at or above the last bound loses.
var tierTable = []struct {
	upper      float64
	tier       string
	multiplier float64
}{
	{0.0000001, "JACKPOT", 15000},
	{0.0014999, "MAJOR WIN", 180},
	{0.0049999, "LARGE WIN", 25},
	{0.0099999, "MEDIUM WIN", 9},
	{0.0119999, "SMALL WIN C", 1.65},
	{0.0199999, "SMALL WIN B", 1.28},
	{0.0999999, "SMALL WIN A", 1.10},
	{0.3999999, "BREAK EVEN", 1.00},
}

// Roll deterministically maps (serverSeed, clientSeed, txSignature) to a
// payout tier. The three inputs are concatenated as text and hashed with
// SHA-256; the first 8 digest bytes become a base-256 fraction in [0,1).
// Identical inputs always produce the identical tier, which is what lets
// the client re-derive the outcome after the reveal.
func Roll(serverSeed, clientSeed, txSignature string) TierResult {
	sum := sha256.Sum256([]byte(serverSeed + clientSeed + txSignature))
	return TierFor(rollValue(sum[:8]))
}

func rollValue(b []byte) float64 {
	var r float64
	for i := 0; i < 8 && i < len(b); i++ {
		r += float64(b[i]) / math.Pow(256, float64(i+1))
	}
	return r
}

func TierFor(roll float64) TierResult {
	for _, t := range tierTable {
		if roll < t.upper {
			return TierResult{Tier: t.tier, Multiplier: t.multiplier}
		}
	}
	return TierResult{Tier: "LOSE", Multiplier: 0}
}

// PayoutFor returns floor(stake * multiplier) in whole tokens.
func PayoutFor(stake int64, multiplier float64) int64 {
	return int64(math.Floor(float64(stake) * multiplier))
}

// CommitHex is the one-way commitment to a server seed, revealed to the
// client at session start.
func CommitHex(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

var resultMessages = map[string]string{
	"JACKPOT":     "LEGENDARY JACKPOT!!! The fountain grants your ultimate wish!",
	"MAJOR WIN":   "MAJOR WIN! The spirits favor you greatly!",
	"LARGE WIN":   "LARGE WIN! Your wish echoes through the realm!",
	"MEDIUM WIN":  "MEDIUM WIN! The fountain smiles upon you!",
	"SMALL WIN A": "Your coins return with friends!",
	"SMALL WIN B": "Your coins return with friends!",
	"SMALL WIN C": "Your coins return with friends!",
	"BREAK EVEN":  "The fountain returns your offering.",
	"LOSE":        "The fountain keeps your wishes for now...",
}

func ResultMessage(tier string) string {
	if msg, ok := resultMessages[tier]; ok {
		return msg
	}
	return "Unknown result"
}
