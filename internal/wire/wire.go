// Package wire implementa el codec binario de exportación (proto/user.proto).
//
// Los mensajes se codifican a mano con protowire: no hay código generado.
// Un batch es un UserList; cada Record es un User con todos sus campos string.
package wire

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// ContentType del cuerpo de /api/users/export.
const ContentType = "application/x-protobuf"

// TimestampLayout es ISO-8601 UTC con milisegundos (mismo formato que toISOString).
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Números de campo de User.
const (
	fieldID        protowire.Number = 1
	fieldEmail     protowire.Number = 2
	fieldRole      protowire.Number = 3
	fieldStatus    protowire.Number = 4
	fieldCreatedAt protowire.Number = 5
	fieldEmailHash protowire.Number = 6
	fieldSignature protowire.Number = 7

	// UserList.users
	fieldUsers protowire.Number = 1
)

var (
	ErrMissingField = errors.New("wire: missing required field")
	ErrMalformed    = errors.New("wire: malformed payload")
)

// Record es la forma de transporte de un usuario.
type Record struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	EmailHash string `json:"emailHash"`
	Signature string `json:"signature"`
}

// MissingFieldError indica qué campo de qué registro está vacío.
type MissingFieldError struct {
	Index int
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("wire: record %d: missing required field %q", e.Index, e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// FormatTimestamp convierte t al formato de transporte.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp acepta el formato de transporte y, como fallback, RFC3339 con nanos.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// EncodeBatch serializa records como UserList. Un registro con algún campo vacío
// aborta todo el batch con *MissingFieldError.
func EncodeBatch(records []Record) ([]byte, error) {
	var out []byte
	var msg []byte
	for i := range records {
		if err := records[i].check(i); err != nil {
			return nil, err
		}
		msg = appendRecord(msg[:0], &records[i])
		out = protowire.AppendTag(out, fieldUsers, protowire.BytesType)
		out = protowire.AppendBytes(out, msg)
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

// DecodeBatch parsea un UserList. Campos ausentes quedan en "" y los desconocidos
// se saltean. Sólo falla si el payload no es protobuf válido.
func DecodeBatch(b []byte) ([]Record, error) {
	records := []Record{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		if num == fieldUsers && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: users[%d]: %v", ErrMalformed, len(records), protowire.ParseError(n))
			}
			rec, err := decodeRecord(v)
			if err != nil {
				return nil, fmt.Errorf("users[%d]: %w", len(records), err)
			}
			records = append(records, rec)
			b = b[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return records, nil
}

func (r *Record) check(i int) error {
	fields := [...]struct {
		name string
		v    string
	}{
		{"id", r.ID},
		{"email", r.Email},
		{"role", r.Role},
		{"status", r.Status},
		{"createdAt", r.CreatedAt},
		{"emailHash", r.EmailHash},
		{"signature", r.Signature},
	}
	for _, f := range fields {
		if f.v == "" {
			return &MissingFieldError{Index: i, Field: f.name}
		}
	}
	return nil
}

func appendRecord(b []byte, r *Record) []byte {
	b = appendString(b, fieldID, r.ID)
	b = appendString(b, fieldEmail, r.Email)
	b = appendString(b, fieldRole, r.Role)
	b = appendString(b, fieldStatus, r.Status)
	b = appendString(b, fieldCreatedAt, r.CreatedAt)
	b = appendString(b, fieldEmailHash, r.EmailHash)
	b = appendString(b, fieldSignature, r.Signature)
	return b
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	// proto3: el valor por defecto no se emite
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func decodeRecord(b []byte) (Record, error) {
	var r Record
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Record{}, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		dst := r.field(num)
		if dst != nil && typ == protowire.BytesType {
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return Record{}, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			*dst = v
			b = b[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return Record{}, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return r, nil
}

func (r *Record) field(num protowire.Number) *string {
	switch num {
	case fieldID:
		return &r.ID
	case fieldEmail:
		return &r.Email
	case fieldRole:
		return &r.Role
	case fieldStatus:
		return &r.Status
	case fieldCreatedAt:
		return &r.CreatedAt
	case fieldEmailHash:
		return &r.EmailHash
	case fieldSignature:
		return &r.Signature
	}
	return nil
}
