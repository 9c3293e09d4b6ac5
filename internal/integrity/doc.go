// Package integrity implementa el esquema hash + firma sobre el email canónico de cada usuario.
//
// # Piezas
//
//   - Provider: resuelve el par de claves RSA activo (env > disco > generado y persistido).
//   - Signer: SHA-384 (hex) + firma RSA PKCS#1 v1.5/SHA-384 (base64) sobre el mismo string.
//   - Verifier: recalcula el hash y valida la firma sólo con la clave pública.
//
// # Usage
//
// En main.go (una vez):
//
//	prov := integrity.NewProvider(integrity.ProviderConfig{Dir: cfg.Keys.Dir})
//	pair, err := prov.ObtainKeyPair()
//	signer, err := integrity.NewSigner(pair)
//
// En el write path:
//
//	sig, err := signer.HashAndSign(validation.CanonicalEmail(email))
//
// En el read path (cliente):
//
//	res := integrity.VerifyIntegrity(email, hashHex, sigB64, publicKeyPEM)
//	if !res.Valid { log.Warn("tampered", logger.Err(res.Reason())) }
//
// Rotar el par invalida todas las firmas emitidas con el anterior. No hay rotación.
package integrity
