package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"github.com/dropDatabas3/adminpanel/internal/integrity"
	"github.com/dropDatabas3/adminpanel/internal/observability/logger"
	"github.com/dropDatabas3/adminpanel/internal/wire"
	"golang.org/x/sync/errgroup"
)

// Export es el cuerpo crudo de GET /api/users/export.
type Export struct {
	Payload []byte
	// HeaderPublicKey es el PEM de X-Public-Key ("" si no vino o no decodifica).
	HeaderPublicKey string
}

// VerifiedUser es un registro del export con su veredicto local.
// VerificationError queda vacío si Verified.
type VerifiedUser struct {
	Record            wire.Record                  `json:"user"`
	Verified          bool                         `json:"isVerified"`
	VerificationError string                       `json:"verificationError,omitempty"`
	Result            integrity.VerificationResult `json:"result"`
}

// VerifyOptions controla de dónde sale la clave pública.
type VerifyOptions struct {
	// PublicKeyPEM fija la clave y evita pedirla.
	PublicKeyPEM string
	// UseHeaderKey usa X-Public-Key del export en vez de GET /public-key.
	// Si el header falta se cae al endpoint.
	UseHeaderKey bool
}

// FetchExport descarga el batch binario.
func (c *Client) FetchExport(ctx context.Context) (*Export, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/users/export", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", wire.ContentType)
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: read export: %w", err)
	}
	exp := &Export{Payload: payload}
	if h := resp.Header.Get(headerPublicKey); h != "" {
		if pem, err := base64.StdEncoding.DecodeString(h); err == nil {
			exp.HeaderPublicKey = string(pem)
		}
	}
	return exp, nil
}

// FetchAndVerify baja clave y export, decodifica y verifica cada registro.
// Un registro inválido nunca se descarta ni corta el batch; sólo fallan la red,
// la decodificación o la cancelación del contexto.
func (c *Client) FetchAndVerify(ctx context.Context, opts VerifyOptions) ([]VerifiedUser, error) {
	log := logger.FromWithFields(ctx, logger.Component("client"), logger.Op("FetchAndVerify"))

	pub := opts.PublicKeyPEM
	if pub == "" && !opts.UseHeaderKey {
		var err error
		if pub, err = c.FetchPublicKey(ctx); err != nil {
			return nil, err
		}
	}

	exp, err := c.FetchExport(ctx)
	if err != nil {
		return nil, err
	}
	if pub == "" {
		pub = exp.HeaderPublicKey
	}
	if pub == "" {
		if pub, err = c.FetchPublicKey(ctx); err != nil {
			return nil, err
		}
	}

	records, err := wire.DecodeBatch(exp.Payload)
	if err != nil {
		return nil, fmt.Errorf("client: decode export: %w", err)
	}

	out, err := VerifyRecords(ctx, records, pub, c.concurrency)
	if err != nil {
		return nil, err
	}

	invalid := 0
	for _, u := range out {
		if !u.Verified {
			invalid++
			log.Debug("record failed verification",
				logger.UserID(u.Record.ID),
				logger.Valid(false),
				logger.String("detail", u.VerificationError),
			)
		}
	}
	if invalid > 0 {
		log.Warn("export contains records that failed verification",
			logger.Int("records", len(out)), logger.Int("invalid", invalid))
	} else {
		log.Debug("export verified", logger.Int("records", len(out)))
	}
	return out, nil
}

// VerifyRecords verifica records contra publicKeyPEM con a lo sumo limit goroutines.
// El orden de salida es el de entrada. Sólo retorna error si ctx se cancela.
func VerifyRecords(ctx context.Context, records []wire.Record, publicKeyPEM string, limit int) ([]VerifiedUser, error) {
	if limit <= 0 {
		limit = defaultConcurrency
	}
	verifier := integrity.NewVerifier(publicKeyPEM)
	out := make([]VerifiedUser, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range records {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = verifyOne(verifier, records[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func verifyOne(v *integrity.Verifier, r wire.Record) (vu VerifiedUser) {
	vu.Record = r
	defer func() {
		if rec := recover(); rec != nil {
			vu.Verified = false
			vu.VerificationError = "Verification failed"
		}
	}()
	vu.Result = v.Verify(r.Email, r.EmailHash, r.Signature)
	vu.Verified = vu.Result.Valid
	if !vu.Verified {
		vu.VerificationError = vu.Result.Summary()
	}
	return vu
}
