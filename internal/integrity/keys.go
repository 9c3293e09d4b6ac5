package integrity

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dropDatabas3/adminpanel/internal/observability/logger"
	"github.com/dropDatabas3/adminpanel/internal/util/atomicwrite"
)

const (
	// DefaultKeyBits es el tamaño de módulo RSA para pares generados.
	DefaultKeyBits = 4096

	// DefaultKeysDir es la ubicación "well-known" relativa al working dir.
	DefaultKeysDir = "keys"

	PrivateKeyFile = "private-key.pem"
	PublicKeyFile  = "public-key.pem"

	pemPrivateKey = "PRIVATE KEY"
	pemPublicKey  = "PUBLIC KEY"
)

// KeyPair es el par activo en PEM: privada PKCS8, pública SPKI.
// Inmutable una vez resuelto.
type KeyPair struct {
	PrivateKeyPEM string
	PublicKeyPEM  string
}

// KeySource indica de dónde salió el par.
type KeySource string

const (
	SourceEnv       KeySource = "env"
	SourceDisk      KeySource = "disk"
	SourceGenerated KeySource = "generated"
)

// ProviderConfig configura el Provider.
type ProviderConfig struct {
	// Dir es el directorio de los archivos PEM. Default: "keys".
	Dir string

	// PrivateKey/PublicKey vienen de la configuración del proceso (PRIVATE_KEY / PUBLIC_KEY).
	// Pueden traer secuencias "\n" literales.
	PrivateKey string
	PublicKey  string

	// Bits para generación. Default: 4096.
	Bits int
}

// Provider resuelve el par una sola vez por proceso y lo cachea.
// El orden de resolución nunca cambia: env > disco > generar y persistir.
//
// El mutex sólo cubre llamadas dentro del mismo proceso. Dos procesos arrancando en frío
// contra el mismo directorio pueden generar pares distintos (gana la última escritura);
// para despliegues con varias instancias usar claves por env.
type Provider struct {
	cfg ProviderConfig

	mu     sync.Mutex
	pair   *KeyPair
	source KeySource
}

// NewProvider crea un Provider con defaults aplicados.
func NewProvider(cfg ProviderConfig) *Provider {
	if strings.TrimSpace(cfg.Dir) == "" {
		cfg.Dir = DefaultKeysDir
	}
	if cfg.Bits <= 0 {
		cfg.Bits = DefaultKeyBits
	}
	return &Provider{cfg: cfg}
}

// Dir retorna el directorio de claves efectivo.
func (p *Provider) Dir() string { return p.cfg.Dir }

// Source retorna el origen del par resuelto ("" si todavía no se resolvió).
func (p *Provider) Source() KeySource {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

// ObtainKeyPair devuelve el par activo. Idempotente: después de la primera resolución
// exitosa no toca disco ni env.
//
// Sólo retorna error si hay que generar y la generación o la persistencia fallan;
// el caller debe tratarlo como fatal de arranque.
func (p *Provider) ObtainKeyPair() (KeyPair, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pair != nil {
		return *p.pair, nil
	}

	log := logger.L().With(logger.Component("integrity"), logger.Op("ObtainKeyPair"))

	// 1) Env: se usan tal cual, sin escribir a disco
	if p.cfg.PrivateKey != "" && p.cfg.PublicKey != "" {
		pair := KeyPair{
			PrivateKeyPEM: unescapePEM(p.cfg.PrivateKey),
			PublicKeyPEM:  unescapePEM(p.cfg.PublicKey),
		}
		p.set(pair, SourceEnv)
		log.Info("key pair loaded", logger.KeySource(string(SourceEnv)))
		return pair, nil
	}

	// 2) Disco: un error de lectura equivale a "no hay claves"
	pair, err := readKeyPair(p.cfg.Dir)
	if err == nil {
		p.set(pair, SourceDisk)
		log.Info("key pair loaded", logger.KeySource(string(SourceDisk)), logger.String("dir", p.cfg.Dir))
		return pair, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		log.Warn("key files unreadable, generating new pair", logger.Err(err))
	}

	// 3) Generar + persistir
	pair, err = GenerateKeyPair(p.cfg.Bits)
	if err != nil {
		return KeyPair{}, err
	}
	if err := WriteKeyPair(p.cfg.Dir, pair); err != nil {
		return KeyPair{}, err
	}
	p.set(pair, SourceGenerated)
	log.Info("key pair generated",
		logger.KeySource(string(SourceGenerated)),
		logger.String("dir", p.cfg.Dir),
		logger.Int("bits", p.cfg.Bits),
	)
	return pair, nil
}

func (p *Provider) set(pair KeyPair, src KeySource) {
	p.pair = &pair
	p.source = src
}

// GenerateKeyPair genera un par RSA con exponente por defecto (65537).
func GenerateKeyPair(bits int) (KeyPair, error) {
	if bits <= 0 {
		bits = DefaultKeyBits
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate rsa key: %w", err)
	}
	return EncodeKeyPair(priv)
}

// EncodeKeyPair serializa una clave privada RSA como par PEM (PKCS8 + SPKI).
func EncodeKeyPair(priv *rsa.PrivateKey) (KeyPair, error) {
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return KeyPair{}, fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("marshal public key: %w", err)
	}
	return KeyPair{
		PrivateKeyPEM: string(pem.EncodeToMemory(&pem.Block{Type: pemPrivateKey, Bytes: privDER})),
		PublicKeyPEM:  string(pem.EncodeToMemory(&pem.Block{Type: pemPublicKey, Bytes: pubDER})),
	}, nil
}

// WriteKeyPair persiste el par en dir (creándolo si no existe).
// La privada queda 0600, la pública 0644.
func WriteKeyPair(dir string, pair KeyPair) error {
	if err := atomicwrite.AtomicWriteFile(filepath.Join(dir, PrivateKeyFile), []byte(pair.PrivateKeyPEM), 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	if err := atomicwrite.AtomicWriteFile(filepath.Join(dir, PublicKeyFile), []byte(pair.PublicKeyPEM), 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}
	return nil
}

// readKeyPair lee ambos archivos y los valida. Cualquier falla se reporta como error;
// el Provider lo trata como ausencia.
func readKeyPair(dir string) (KeyPair, error) {
	priv, err := os.ReadFile(filepath.Join(dir, PrivateKeyFile))
	if err != nil {
		return KeyPair{}, err
	}
	pub, err := os.ReadFile(filepath.Join(dir, PublicKeyFile))
	if err != nil {
		return KeyPair{}, err
	}
	if len(strings.TrimSpace(string(priv))) == 0 || len(strings.TrimSpace(string(pub))) == 0 {
		return KeyPair{}, fmt.Errorf("empty key file in %s", dir)
	}

	pair := KeyPair{PrivateKeyPEM: string(priv), PublicKeyPEM: string(pub)}
	if _, err := ParsePrivateKey(pair.PrivateKeyPEM); err != nil {
		return KeyPair{}, err
	}
	if _, err := ParsePublicKey(pair.PublicKeyPEM); err != nil {
		return KeyPair{}, err
	}
	return pair, nil
}

// ParsePrivateKey decodifica una clave privada RSA PEM (PKCS8, con fallback PKCS1).
func ParsePrivateKey(pemText string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrInvalidKey)
	}
	if k, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rk, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: private key is %T, want RSA", ErrInvalidKey, k)
		}
		return rk, nil
	}
	rk, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return rk, nil
}

// ParsePublicKey decodifica una clave pública RSA PEM (SPKI, con fallback PKCS1).
func ParsePublicKey(pemText string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block", ErrInvalidKey)
	}
	if k, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		rk, ok := k.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: public key is %T, want RSA", ErrInvalidKey, k)
		}
		return rk, nil
	}
	rk, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return rk, nil
}

// EscapePEM convierte saltos de línea a "\n" literales (formato one-line para .env).
func EscapePEM(s string) string {
	return strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", `\n`)
}

func unescapePEM(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}
