package integrity

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// VerificationResult es efímero: se calcula por lectura y nunca se persiste.
// Valid == HashValid && SignatureValid.
type VerificationResult struct {
	HashValid      bool `json:"hashValid"`
	SignatureValid bool `json:"signatureValid"`
	Valid          bool `json:"valid"`

	hashErr error
	sigErr  error
}

// Reason retorna la causa tipada de la falla (nil si Valid).
// Sólo para diagnóstico; el contrato público son los booleanos.
func (r VerificationResult) Reason() error {
	return errors.Join(r.hashErr, r.sigErr)
}

// Summary formatea el resultado como "Hash: ✓, Sig: ✗".
func (r VerificationResult) Summary() string {
	return fmt.Sprintf("Hash: %s, Sig: %s", mark(r.HashValid), mark(r.SignatureValid))
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

// Verifier verifica registros contra una clave pública ya parseada.
// No tiene estado mutable: se puede compartir entre goroutines.
type Verifier struct {
	pub    *rsa.PublicKey
	keyErr error
}

// NewVerifier parsea publicKeyPEM. Nunca falla: si el PEM es inválido, todas las
// verificaciones de firma dan false con ErrInvalidKey como causa.
func NewVerifier(publicKeyPEM string) *Verifier {
	pub, err := ParsePublicKey(publicKeyPEM)
	return &Verifier{pub: pub, keyErr: err}
}

// KeyErr expone el error de importación de la clave (nil si es válida).
func (v *Verifier) KeyErr() error { return v.keyErr }

// Verify ejecuta ambas comprobaciones, sin cortocircuito.
func (v *Verifier) Verify(canonical, digestHex, signatureBase64 string) VerificationResult {
	var res VerificationResult

	res.hashErr = checkHash(canonical, digestHex)
	res.HashValid = res.hashErr == nil

	res.sigErr = v.checkSignature(canonical, signatureBase64)
	res.SignatureValid = res.sigErr == nil

	res.Valid = res.HashValid && res.SignatureValid
	return res
}

// VerifyIntegrity es la forma pura de una sola llamada: importa la clave, recalcula
// el hash y valida la firma. Nunca hace panic ni retorna error.
func VerifyIntegrity(canonical, digestHex, signatureBase64, publicKeyPEM string) VerificationResult {
	return NewVerifier(publicKeyPEM).Verify(canonical, digestHex, signatureBase64)
}

func checkHash(canonical, digestHex string) error {
	if !strings.EqualFold(HashHex(canonical), strings.TrimSpace(digestHex)) {
		return ErrHashMismatch
	}
	return nil
}

func (v *Verifier) checkSignature(canonical, signatureBase64 string) (err error) {
	// Input no confiable: cualquier panic del primitivo se degrada a "firma inválida".
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrBadSignature, rec)
		}
	}()

	if v == nil || v.pub == nil {
		if v != nil && v.keyErr != nil {
			return v.keyErr
		}
		return ErrInvalidKey
	}
	sig, derr := base64.StdEncoding.DecodeString(strings.TrimSpace(signatureBase64))
	if derr != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSignature, derr)
	}
	sum := sha512.Sum384([]byte(canonical))
	if verr := rsa.VerifyPKCS1v15(v.pub, crypto.SHA384, sum[:], sig); verr != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, verr)
	}
	return nil
}
