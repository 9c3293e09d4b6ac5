package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/adminpanel/internal/config"
	"github.com/dropDatabas3/adminpanel/internal/integrity"
	"github.com/dropDatabas3/adminpanel/internal/observability/logger"
)

func main() {
	var (
		flagEnvFile = flag.String("env-file", ".env", "ruta a .env")
		flagConfig  = flag.String("config", "", "ruta a config.yaml (opcional)")
		flagDir     = flag.String("dir", "", "directorio de claves (default: keys.dir de la config)")
		flagBits    = flag.Int("bits", integrity.DefaultKeyBits, "tamaño de la clave RSA")
		flagForce   = flag.Bool("force", false, "con -gen, sobreescribe claves existentes")
		cmdGen      = flag.Bool("gen", false, "genera un par nuevo y lo escribe en -dir")
		cmdEnv      = flag.Bool("env", false, "imprime el par resuelto como PRIVATE_KEY=/PUBLIC_KEY= de una línea")
		cmdCheck    = flag.Bool("check", false, "resuelve el par (env > disco > generar) y hace sign/verify")
	)
	flag.Parse()

	if *flagEnvFile != "" {
		_ = godotenv.Load(*flagEnvFile)
	}
	logger.Init(logger.Config{Env: "dev", Level: "warn"})

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	dir := cfg.Keys.Dir
	if *flagDir != "" {
		dir = *flagDir
	}

	switch {
	case *cmdGen:
		if !*flagForce && filesExist(dir) {
			log.Fatalf("ya hay claves en %s (usar -force para reemplazarlas: invalida todas las firmas)", dir)
		}
		pair, err := integrity.GenerateKeyPair(*flagBits)
		if err != nil {
			log.Fatalf("generate: %v", err)
		}
		if err := integrity.WriteKeyPair(dir, pair); err != nil {
			log.Fatalf("write: %v", err)
		}
		fmt.Printf("✅ par RSA-%d escrito en %s\n", *flagBits, dir)

	case *cmdEnv, *cmdCheck:
		p := integrity.NewProvider(integrity.ProviderConfig{
			Dir:        dir,
			PrivateKey: cfg.Keys.PrivateKey,
			PublicKey:  cfg.Keys.PublicKey,
			Bits:       *flagBits,
		})
		pair, err := p.ObtainKeyPair()
		if err != nil {
			log.Fatalf("obtain key pair: %v", err)
		}
		if *cmdEnv {
			fmt.Printf("PRIVATE_KEY=\"%s\"\n", integrity.EscapePEM(pair.PrivateKeyPEM))
			fmt.Printf("PUBLIC_KEY=\"%s\"\n", integrity.EscapePEM(pair.PublicKeyPEM))
			return
		}
		if err := selfTest(pair); err != nil {
			log.Fatalf("❌ self test (%s): %v", p.Source(), err)
		}
		fmt.Printf("✅ par OK (source=%s)\n", p.Source())

	default:
		flag.Usage()
		os.Exit(2)
	}
}

// selfTest firma un valor fijo y lo verifica con la pública del mismo par.
func selfTest(pair integrity.KeyPair) error {
	s, err := integrity.NewSigner(pair)
	if err != nil {
		return err
	}
	const probe = "self-test@adminpanel.local"
	sig, err := s.HashAndSign(probe)
	if err != nil {
		return err
	}
	res := integrity.VerifyIntegrity(probe, sig.DigestHex, sig.SignatureBase64, pair.PublicKeyPEM)
	if !res.Valid {
		return fmt.Errorf("%s: %w", res.Summary(), res.Reason())
	}
	return nil
}

func filesExist(dir string) bool {
	for _, name := range []string{integrity.PrivateKeyFile, integrity.PublicKeyFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}
