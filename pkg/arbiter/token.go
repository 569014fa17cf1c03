package arbiter

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "plang-arbiter"

// ResultClaims is the signed, portable summary of an arbitration result.
// Downstream enforcers verify the token instead of trusting a relayed
// result struct.
type ResultClaims struct {
	SnapshotHash      string `json:"snapshot_hash"`
	Strategy          string `json:"strategy"`
	EffectiveAction   string `json:"effective_action"`
	ConflictsResolved int    `json:"conflicts_resolved"`
	jwt.RegisteredClaims
}

// SignResult issues an EdDSA-signed token over the result using the
// tenant keyring.
func (k *Keyring) SignResult(res *Result) (string, error) {
	claims := ResultClaims{
		SnapshotHash:      res.SnapshotHash,
		Strategy:          string(res.Strategy),
		EffectiveAction:   string(res.EffectiveAction),
		ConflictsResolved: res.ConflictsResolved,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   tokenIssuer,
			Subject:  res.TenantID,
			IssuedAt: jwt.NewNumericDate(res.Timestamp),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(ed25519.NewKeyFromSeed(k.provider.seed()))
	if err != nil {
		return "", fmt.Errorf("arbiter: sign result: %w", err)
	}
	return signed, nil
}

// VerifyResultToken checks signature and issuer and returns the claims.
func VerifyResultToken(pub ed25519.PublicKey, tokenString string) (*ResultClaims, error) {
	claims := &ResultClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return pub, nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("arbiter: verify result token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("arbiter: result token invalid")
	}
	return claims, nil
}
