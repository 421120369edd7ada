package accountauth

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestAuthenticateRecoversSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key failed: %v", err)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	body := `{"description":"p1"}`

	req := httptest.NewRequest("POST", "/v1/elections/e-1/proposals", strings.NewReader(body))
	if err := SignRequest(req, key, []byte(body), now); err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	verifier := Verifier{MaxClockSkew: time.Minute, Now: func() time.Time { return now.Add(30 * time.Second) }}
	caller, err := verifier.Authenticate(req)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if caller != crypto.PubkeyToAddress(key.PublicKey) {
		t.Fatalf("expected %s, got %s", crypto.PubkeyToAddress(key.PublicKey).Hex(), caller.Hex())
	}

	restored, _ := io.ReadAll(req.Body)
	if string(restored) != body {
		t.Fatalf("expected body to be restored, got %q", string(restored))
	}
}

func TestAuthenticateAcceptsWalletRecoveryID(t *testing.T) {
	key, _ := crypto.GenerateKey()
	now := time.Unix(1_700_000_000, 0)
	signedAt := strconv.FormatInt(now.Unix(), 10)

	signature, err := crypto.Sign(Digest("POST", "/v1/elections", signedAt, nil), key)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	signature[crypto.RecoveryIDOffset] += 27

	req := httptest.NewRequest("POST", "/v1/elections", nil)
	req.Header.Set(HeaderAccount, crypto.PubkeyToAddress(key.PublicKey).Hex())
	req.Header.Set(HeaderSignature, hexutil.Encode(signature))
	req.Header.Set(HeaderSignedAt, signedAt)

	verifier := Verifier{Now: func() time.Time { return now }}
	if _, err := verifier.Authenticate(req); err != nil {
		t.Fatalf("expected wallet-style signature to verify, got %v", err)
	}
}

func TestAuthenticateRejections(t *testing.T) {
	key, _ := crypto.GenerateKey()
	other, _ := crypto.GenerateKey()
	now := time.Unix(1_700_000_000, 0)
	verifier := Verifier{MaxClockSkew: time.Minute, Now: func() time.Time { return now }}

	testCases := []struct {
		name  string
		build func() *http.Request
		want  error
	}{
		{
			name: "missing account",
			build: func() *http.Request {
				return newRequest("POST", "/v1/elections", "")
			},
			want: ErrMissingAccount,
		},
		{
			name: "malformed account",
			build: func() *http.Request {
				req := newRequest("POST", "/v1/elections", "")
				req.Header.Set(HeaderAccount, "0x1234")
				return req
			},
			want: ErrInvalidAccount,
		},
		{
			name: "unsigned",
			build: func() *http.Request {
				req := newRequest("POST", "/v1/elections", "")
				req.Header.Set(HeaderAccount, crypto.PubkeyToAddress(key.PublicKey).Hex())
				return req
			},
			want: ErrMissingSignature,
		},
		{
			name: "stale",
			build: func() *http.Request {
				req := newRequest("POST", "/v1/elections", "")
				_ = SignRequest(req, key, nil, now.Add(-2*time.Minute))
				return req
			},
			want: ErrStaleSignature,
		},
		{
			name: "tampered body",
			build: func() *http.Request {
				req := newRequest("POST", "/v1/elections/e-1/votes", `{"proposal_id":2}`)
				_ = SignRequest(req, key, []byte(`{"proposal_id":1}`), now)
				return req
			},
			want: ErrSignerMismatch,
		},
		{
			name: "someone else's signature",
			build: func() *http.Request {
				req := newRequest("POST", "/v1/elections", "")
				_ = SignRequest(req, other, nil, now)
				req.Header.Set(HeaderAccount, crypto.PubkeyToAddress(key.PublicKey).Hex())
				return req
			},
			want: ErrSignerMismatch,
		},
		{
			name: "short signature",
			build: func() *http.Request {
				req := newRequest("POST", "/v1/elections", "")
				req.Header.Set(HeaderAccount, crypto.PubkeyToAddress(key.PublicKey).Hex())
				req.Header.Set(HeaderSignature, "0xdeadbeef")
				req.Header.Set(HeaderSignedAt, strconv.FormatInt(now.Unix(), 10))
				return req
			},
			want: ErrInvalidSignature,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := verifier.Authenticate(tc.build())
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAuthenticateRejectsReplayedRequests(t *testing.T) {
	key, _ := crypto.GenerateKey()
	now := time.Unix(1_700_000_000, 0)
	body := []byte(`{"description":"repair the bridge"}`)
	verifier := Verifier{
		MaxClockSkew: time.Minute,
		Replays:      NewReplayGuard(16),
		Now:          func() time.Time { return now },
	}
	signed := func(at time.Time) *http.Request {
		req := newRequest("POST", "/v1/elections/e-1/proposals", string(body))
		if err := SignRequest(req, key, body, at); err != nil {
			t.Fatalf("sign failed: %v", err)
		}
		return req
	}

	first := signed(now)
	if _, err := verifier.Authenticate(first); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	replay := newRequest("POST", "/v1/elections/e-1/proposals", string(body))
	replay.Header = first.Header.Clone()
	if _, err := verifier.Authenticate(replay); !errors.Is(err, ErrReplayedRequest) {
		t.Fatalf("expected replay to be rejected, got %v", err)
	}

	// A wallet-style v byte is the same signature.
	flipped := newRequest("POST", "/v1/elections/e-1/proposals", string(body))
	flipped.Header = first.Header.Clone()
	signature, _ := hexutil.Decode(first.Header.Get(HeaderSignature))
	signature[crypto.RecoveryIDOffset] += 27
	flipped.Header.Set(HeaderSignature, hexutil.Encode(signature))
	if _, err := verifier.Authenticate(flipped); !errors.Is(err, ErrReplayedRequest) {
		t.Fatalf("expected re-encoded signature to be rejected, got %v", err)
	}

	if _, err := verifier.Authenticate(signed(now.Add(-time.Second))); err != nil {
		t.Fatalf("expected a freshly signed retry to pass, got %v", err)
	}
}

func TestReplayGuardForgetsClosedWindows(t *testing.T) {
	guard := NewReplayGuard(0)
	now := time.Unix(1_700_000_000, 0)
	key := common.HexToHash("0x01")

	if !guard.admit(key, now.Add(time.Minute), now) {
		t.Fatalf("expected first admit")
	}
	if guard.admit(key, now.Add(time.Minute), now.Add(59*time.Second)) {
		t.Fatalf("expected repeat inside the window to be refused")
	}
	if !guard.admit(common.HexToHash("0x02"), now.Add(3*time.Minute), now.Add(2*time.Minute)) {
		t.Fatalf("expected a new key to be admitted")
	}
	if guard.Len() != 1 {
		t.Fatalf("expected the closed window to be pruned, got %d entries", guard.Len())
	}
}

func TestAuthenticateBoundsBody(t *testing.T) {
	key, _ := crypto.GenerateKey()
	now := time.Unix(1_700_000_000, 0)
	body := []byte(strings.Repeat("x", 64))
	verifier := Verifier{MaxBodyBytes: 32, Now: func() time.Time { return now }}

	req := newRequest("POST", "/v1/elections/e-1/proposals", string(body))
	if err := SignRequest(req, key, body, now); err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := verifier.Authenticate(req); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected oversized body to be rejected, got %v", err)
	}

	verifier.MaxBodyBytes = 64
	req = newRequest("POST", "/v1/elections/e-1/proposals", string(body))
	if err := SignRequest(req, key, body, now); err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := verifier.Authenticate(req); err != nil {
		t.Fatalf("expected body at the limit to pass, got %v", err)
	}
	restored, _ := io.ReadAll(req.Body)
	if string(restored) != string(body) {
		t.Fatalf("expected body to be restored, got %q", restored)
	}
}

func TestTrustAddressHeaderSkipsSignature(t *testing.T) {
	req := newRequest("POST", "/v1/elections", "")
	account := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	req.Header.Set(HeaderAccount, account.Hex())

	caller, err := Verifier{TrustAddressHeader: true}.Authenticate(req)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if caller != account {
		t.Fatalf("expected %s, got %s", account.Hex(), caller.Hex())
	}

	req.Header.Set(HeaderAccount, common.Address{}.Hex())
	if _, err := (Verifier{TrustAddressHeader: true}).Authenticate(req); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("expected zero address to be rejected, got %v", err)
	}
}

func newRequest(method string, path string, body string) *http.Request {
	return httptest.NewRequest(method, path, strings.NewReader(body))
}
