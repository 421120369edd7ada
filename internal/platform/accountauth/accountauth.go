// Package accountauth authenticates HTTP callers as Ethereum accounts.
//
// A caller signs the Keccak-256 digest of
//
//	method \n path \n signed-at \n keccak256(body)
//
// with its secp256k1 key and sends the address, the 65-byte signature and the
// signing time (unix seconds) as headers. The server recovers the signer from
// the signature and accepts the request only when it matches the address. A
// signed request is accepted once; a retry must be signed again.
package accountauth

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

const (
	HeaderAccount   = "X-Account-Address"
	HeaderSignature = "X-Signature"
	HeaderSignedAt  = "X-Signed-At"
)

var (
	ErrMissingAccount   = errors.New("X-Account-Address header is required")
	ErrInvalidAccount   = errors.New("X-Account-Address is not a valid address")
	ErrMissingSignature = errors.New("X-Signature and X-Signed-At headers are required")
	ErrInvalidSignature = errors.New("signature is malformed")
	ErrStaleSignature   = errors.New("signature timestamp is outside the allowed clock skew")
	ErrSignerMismatch   = errors.New("signature does not match X-Account-Address")
	ErrReplayedRequest  = errors.New("signed request was already accepted")
	ErrBodyTooLarge     = errors.New("request body exceeds the signing limit")
)

const defaultMaxBodyBytes int64 = 1 << 20

// Digest is the message a caller signs for one request.
func Digest(method string, path string, signedAt string, body []byte) []byte {
	return keccak256(
		[]byte(strings.ToUpper(method)),
		[]byte("\n"),
		[]byte(path),
		[]byte("\n"),
		[]byte(signedAt),
		[]byte("\n"),
		keccak256(body),
	)
}

// Sign produces the X-Signature value for a request.
func Sign(key *ecdsa.PrivateKey, method string, path string, signedAt string, body []byte) (string, error) {
	signature, err := crypto.Sign(Digest(method, path, signedAt, body), key)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(signature), nil
}

// SignRequest sets the three auth headers on r. The body must be passed
// separately because r.Body may already be consumed.
func SignRequest(r *http.Request, key *ecdsa.PrivateKey, body []byte, at time.Time) error {
	signedAt := strconv.FormatInt(at.Unix(), 10)
	signature, err := Sign(key, r.Method, r.URL.Path, signedAt, body)
	if err != nil {
		return err
	}
	r.Header.Set(HeaderAccount, crypto.PubkeyToAddress(key.PublicKey).Hex())
	r.Header.Set(HeaderSignature, signature)
	r.Header.Set(HeaderSignedAt, signedAt)
	return nil
}

type Verifier struct {
	MaxClockSkew time.Duration
	// MaxBodyBytes bounds the body read for the digest. Defaults to 1 MiB.
	MaxBodyBytes int64
	// Replays rejects a signed request seen before. Nil disables the check.
	Replays *ReplayGuard
	// TrustAddressHeader accepts X-Account-Address without a signature. It
	// exists for local development only.
	TrustAddressHeader bool
	Now                func() time.Time
}

// Authenticate returns the caller address of r. The request body is read and
// restored so handlers can decode it afterwards.
func (v Verifier) Authenticate(r *http.Request) (common.Address, error) {
	raw := strings.TrimSpace(r.Header.Get(HeaderAccount))
	if raw == "" {
		return common.Address{}, ErrMissingAccount
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, ErrInvalidAccount
	}
	claimed := common.HexToAddress(raw)
	if claimed == (common.Address{}) {
		return common.Address{}, ErrInvalidAccount
	}
	if v.TrustAddressHeader {
		return claimed, nil
	}

	signatureHex := strings.TrimSpace(r.Header.Get(HeaderSignature))
	signedAt := strings.TrimSpace(r.Header.Get(HeaderSignedAt))
	if signatureHex == "" || signedAt == "" {
		return common.Address{}, ErrMissingSignature
	}
	seconds, err := strconv.ParseInt(signedAt, 10, 64)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}
	now := v.now()
	if skew := now.Sub(time.Unix(seconds, 0)); skew > v.maxSkew() || skew < -v.maxSkew() {
		return common.Address{}, ErrStaleSignature
	}

	signature, err := hexutil.Decode(signatureHex)
	if err != nil || len(signature) != crypto.SignatureLength {
		return common.Address{}, ErrInvalidSignature
	}
	// Wallets emit v as 27/28; recovery expects 0/1.
	if signature[crypto.RecoveryIDOffset] >= 27 {
		signature[crypto.RecoveryIDOffset] -= 27
	}

	body, err := readBody(r, v.maxBodyBytes())
	if err != nil {
		return common.Address{}, err
	}
	digest := Digest(r.Method, r.URL.Path, signedAt, body)
	publicKey, err := crypto.SigToPub(digest, signature)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}
	if crypto.PubkeyToAddress(*publicKey) != claimed {
		return common.Address{}, ErrSignerMismatch
	}
	// Keyed by signer and digest: the signature bytes are malleable.
	if v.Replays != nil {
		key := common.BytesToHash(keccak256(claimed.Bytes(), digest))
		if !v.Replays.admit(key, time.Unix(seconds, 0).Add(v.maxSkew()), now) {
			return common.Address{}, ErrReplayedRequest
		}
	}
	return claimed, nil
}

func (v Verifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func (v Verifier) maxSkew() time.Duration {
	if v.MaxClockSkew <= 0 {
		return 5 * time.Minute
	}
	return v.MaxClockSkew
}

func (v Verifier) maxBodyBytes() int64 {
	if v.MaxBodyBytes <= 0 {
		return defaultMaxBodyBytes
	}
	return v.MaxBodyBytes
}

func readBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrBodyTooLarge
		}
		return nil, err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}
