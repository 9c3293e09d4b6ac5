package integrity

import "errors"

var (
	// ErrInvalidKey: PEM ausente, malformado o de un tipo que no es RSA.
	ErrInvalidKey = errors.New("integrity: invalid key")

	// ErrHashMismatch: el SHA-384 recalculado no coincide con el almacenado.
	ErrHashMismatch = errors.New("integrity: hash mismatch")

	// ErrMalformedSignature: la firma no es base64 válido.
	ErrMalformedSignature = errors.New("integrity: malformed signature")

	// ErrBadSignature: la firma no verifica contra la clave pública.
	ErrBadSignature = errors.New("integrity: signature mismatch")

	// ErrNoSigner: write path sin clave privada cargada.
	ErrNoSigner = errors.New("integrity: signer not initialized")
)
