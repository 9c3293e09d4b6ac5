package integrity

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// Generar RSA es caro: un par por tamaño y por binario de test.
var (
	fixtureOnce sync.Once
	fixtureA    KeyPair
	fixtureB    KeyPair
	fixtureErr  error
)

func testPairs(t *testing.T) (KeyPair, KeyPair) {
	t.Helper()
	fixtureOnce.Do(func() {
		fixtureA, fixtureErr = GenerateKeyPair(2048)
		if fixtureErr != nil {
			return
		}
		fixtureB, fixtureErr = GenerateKeyPair(2048)
	})
	require.NoError(t, fixtureErr)
	return fixtureA, fixtureB
}

func testSigner(t *testing.T, pair KeyPair) *Signer {
	t.Helper()
	s, err := NewSigner(pair)
	require.NoError(t, err)
	return s
}

func TestHashHex_KnownVector(t *testing.T) {
	const want = "f242e5072188053dddf9d3e380e908391688511c8a1f4d2a98d25885ee44aaf748fd57f96a6d08a49d5d0e817b04fc63"

	got := HashHex("jane.doe@example.com")
	require.Equal(t, want, got)
	require.Len(t, got, 96)
	require.Equal(t, strings.ToLower(got), got)
}

func TestHashAndSign_VerifyRoundTrip(t *testing.T) {
	pairA, _ := testPairs(t)
	signer := testSigner(t, pairA)

	inputs := []string{
		"jane.doe@example.com",
		"a@b.co",
		"",
		"ñandú+test@example.com",
		"日本語@example.jp",
	}
	for _, in := range inputs {
		sig, err := signer.HashAndSign(in)
		require.NoError(t, err)
		require.Equal(t, HashHex(in), sig.DigestHex)

		res := VerifyIntegrity(in, sig.DigestHex, sig.SignatureBase64, pairA.PublicKeyPEM)
		require.True(t, res.HashValid, "hash for %q", in)
		require.True(t, res.SignatureValid, "signature for %q", in)
		require.True(t, res.Valid)
		require.NoError(t, res.Reason())
	}
}

func TestVerify_HashComparisonIsCaseInsensitive(t *testing.T) {
	pairA, _ := testPairs(t)
	sig, err := testSigner(t, pairA).HashAndSign("jane.doe@example.com")
	require.NoError(t, err)

	res := VerifyIntegrity("jane.doe@example.com", strings.ToUpper(sig.DigestHex), sig.SignatureBase64, pairA.PublicKeyPEM)
	require.True(t, res.Valid)
}

func TestVerify_MutatedInputFailsHash(t *testing.T) {
	pairA, _ := testPairs(t)
	const in = "jane.doe@example.com"
	sig, err := testSigner(t, pairA).HashAndSign(in)
	require.NoError(t, err)

	for i := range in {
		mutated := []byte(in)
		mutated[i] ^= 0x01
		res := VerifyIntegrity(string(mutated), sig.DigestHex, sig.SignatureBase64, pairA.PublicKeyPEM)
		require.False(t, res.HashValid, "mutation at %d", i)
		require.False(t, res.SignatureValid, "mutation at %d", i)
		require.False(t, res.Valid)
		require.ErrorIs(t, res.Reason(), ErrHashMismatch)
	}
}

func TestVerify_WrongKeyFailsOnlySignature(t *testing.T) {
	pairA, pairB := testPairs(t)
	const in = "jane.doe@example.com"
	sig, err := testSigner(t, pairA).HashAndSign(in)
	require.NoError(t, err)

	res := VerifyIntegrity(in, sig.DigestHex, sig.SignatureBase64, pairB.PublicKeyPEM)
	require.True(t, res.HashValid)
	require.False(t, res.SignatureValid)
	require.False(t, res.Valid)
	require.ErrorIs(t, res.Reason(), ErrBadSignature)
	require.Equal(t, "Hash: ✓, Sig: ✗", res.Summary())
}

func TestVerify_SignatureRegeneratedWithoutHash(t *testing.T) {
	pairA, _ := testPairs(t)
	signer := testSigner(t, pairA)

	old, err := signer.HashAndSign("old@example.com")
	require.NoError(t, err)
	fresh, err := signer.HashAndSign("new@example.com")
	require.NoError(t, err)

	// hash viejo + firma nueva: se reporta como corrupción, no como error
	res := VerifyIntegrity("new@example.com", old.DigestHex, fresh.SignatureBase64, pairA.PublicKeyPEM)
	require.False(t, res.HashValid)
	require.True(t, res.SignatureValid)
	require.False(t, res.Valid)
}

func TestVerify_UntrustedInputNeverPanics(t *testing.T) {
	pairA, _ := testPairs(t)
	const in = "jane.doe@example.com"
	good, err := testSigner(t, pairA).HashAndSign(in)
	require.NoError(t, err)

	cases := []struct {
		name    string
		sig     string
		pub     string
		wantErr error
	}{
		{"malformed pem", good.SignatureBase64, "-----BEGIN PUBLIC KEY-----\nnope\n-----END PUBLIC KEY-----\n", ErrInvalidKey},
		{"empty pem", good.SignatureBase64, "", ErrInvalidKey},
		{"private key as public", good.SignatureBase64, pairA.PrivateKeyPEM, ErrInvalidKey},
		{"malformed base64", "%%%not-base64%%%", pairA.PublicKeyPEM, ErrMalformedSignature},
		{"empty signature", "", pairA.PublicKeyPEM, ErrBadSignature},
		{"truncated signature", good.SignatureBase64[:41], pairA.PublicKeyPEM, ErrMalformedSignature},
		{"random bytes", base64.StdEncoding.EncodeToString(make([]byte, 256)), pairA.PublicKeyPEM, ErrBadSignature},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := VerifyIntegrity(in, good.DigestHex, tc.sig, tc.pub)
			require.True(t, res.HashValid, "hash check runs regardless of signature failure")
			require.False(t, res.SignatureValid)
			require.False(t, res.Valid)
			require.True(t, errors.Is(res.Reason(), tc.wantErr), "reason = %v", res.Reason())
		})
	}
}

func TestVerifier_ConcurrentUse(t *testing.T) {
	pairA, _ := testPairs(t)
	signer := testSigner(t, pairA)
	v := NewVerifier(pairA.PublicKeyPEM)
	require.NoError(t, v.KeyErr())

	sig, err := signer.HashAndSign("shared@example.com")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := "shared@example.com"
			if i%2 == 1 {
				in = "other@example.com"
			}
			res := v.Verify(in, sig.DigestHex, sig.SignatureBase64)
			if res.Valid != (i%2 == 0) {
				errs <- in
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for in := range errs {
		t.Fatalf("unexpected verification result for %q", in)
	}
}

func TestSigner_NotInitialized(t *testing.T) {
	var s *Signer
	_, err := s.HashAndSign("x@example.com")
	require.ErrorIs(t, err, ErrNoSigner)
	require.Equal(t, "", s.PublicKeyPEM())
}

func TestNewSigner_AcceptsPKCS1(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	legacy := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	s, err := NewSigner(KeyPair{PrivateKeyPEM: string(legacy)})
	require.NoError(t, err)
	sig, err := s.HashAndSign("legacy@example.com")
	require.NoError(t, err)

	pair, err := EncodeKeyPair(key)
	require.NoError(t, err)
	require.True(t, VerifyIntegrity("legacy@example.com", sig.DigestHex, sig.SignatureBase64, pair.PublicKeyPEM).Valid)

	_, err = NewSigner(KeyPair{PrivateKeyPEM: "garbage"})
	require.ErrorIs(t, err, ErrInvalidKey)
}
