package models

import (
	"testing"
	"time"
)

func TestGenerateSessionIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateSessionID()
		if id == "" {
			t.Fatal("empty session ID")
		}
		if seen[id] {
			t.Fatalf("duplicate session ID %s", id)
		}
		seen[id] = true
	}
}

func TestGenerateServerSeed(t *testing.T) {
	seed := GenerateServerSeed()
	if len(seed) != 72 {
		t.Errorf("expected 72 character seed, got %d", len(seed))
	}
	if seed == GenerateServerSeed() {
		t.Error("server seeds must not repeat")
	}
}

func TestGenerateClientSeed(t *testing.T) {
	seed, err := GenerateClientSeed()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seed) != 32 {
		t.Errorf("expected 32 hex characters, got %d", len(seed))
	}
	for _, c := range seed {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			t.Errorf("non-hex character %q in client seed", c)
		}
	}
}

func TestSessionStale(t *testing.T) {
	session := &GamblingSession{Timestamp: time.Now()}
	if session.Stale(5 * time.Minute) {
		t.Error("fresh session reported stale")
	}

	session.Timestamp = time.Now().Add(-6 * time.Minute)
	if !session.Stale(5 * time.Minute) {
		t.Error("6 minute old session not reported stale")
	}
}

func TestStartRequestValidate(t *testing.T) {
	req := &StartRequest{}
	if err := req.Validate(); err == nil {
		t.Error("expected error for missing wallet address")
	}

	req.WalletAddress = "wallet-1"
	if err := req.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestResolveRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		req     ResolveRequest
		wantErr bool
	}{
		{"missing both", ResolveRequest{}, true},
		{"missing signature", ResolveRequest{SessionID: "s1"}, true},
		{"missing session", ResolveRequest{TxSignature: "sig"}, true},
		{"complete", ResolveRequest{SessionID: "s1", TxSignature: "sig"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestClearRequestValidate(t *testing.T) {
	req := &ClearRequest{}
	if err := req.Validate(); err == nil {
		t.Error("expected error for missing wallet address")
	}

	req.WalletAddress = "wallet-1"
	if err := req.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
