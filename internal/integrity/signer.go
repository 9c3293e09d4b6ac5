package integrity

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Signature agrupa hash y firma. Se persisten siempre juntos.
type Signature struct {
	DigestHex       string
	SignatureBase64 string
}

// Signer firma strings canónicos con la clave privada activa.
// Es seguro para uso concurrente.
type Signer struct {
	key       *rsa.PrivateKey
	publicPEM string
}

// NewSigner parsea la clave privada del par. La pública se conserva tal cual
// para exponerla en /public-key y en el header del export.
func NewSigner(pair KeyPair) (*Signer, error) {
	key, err := ParsePrivateKey(pair.PrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("load signing key: %w", err)
	}
	return &Signer{key: key, publicPEM: pair.PublicKeyPEM}, nil
}

// PublicKeyPEM retorna la clave pública SPKI PEM del par.
func (s *Signer) PublicKeyPEM() string {
	if s == nil {
		return ""
	}
	return s.publicPEM
}

// HashAndSign calcula SHA-384 hex y la firma base64 sobre canonical.
// canonical ya viene normalizado (lower + trim); acá no se re-normaliza.
// Se firma el string original, no el digest hex.
func (s *Signer) HashAndSign(canonical string) (Signature, error) {
	if s == nil || s.key == nil {
		return Signature{}, ErrNoSigner
	}
	sum := sha512.Sum384([]byte(canonical))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA384, sum[:])
	if err != nil {
		return Signature{}, fmt.Errorf("sign: %w", err)
	}
	return Signature{
		DigestHex:       hex.EncodeToString(sum[:]),
		SignatureBase64: base64.StdEncoding.EncodeToString(sig),
	}, nil
}

// HashHex retorna el SHA-384 de s en hex minúscula (96 chars).
func HashHex(s string) string {
	sum := sha512.Sum384([]byte(s))
	return hex.EncodeToString(sum[:])
}
