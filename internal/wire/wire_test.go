package wire

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func sampleRecord(email string) Record {
	return Record{
		ID:        "3f2c8b1e-4d5a-4b6c-9d7e-8f9a0b1c2d3e",
		Email:     email,
		Role:      "ADMIN",
		Status:    "ACTIVE",
		CreatedAt: "2024-05-01T12:00:00.000Z",
		EmailHash: strings.Repeat("ab", 48),
		Signature: "c2lnbmF0dXJl",
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	in := []Record{
		sampleRecord("jane.doe@example.com"),
		sampleRecord("ñandú@example.com"),
		sampleRecord("日本語@example.jp"),
	}
	in[1].Role = "USER"
	in[2].Status = "INACTIVE"

	b, err := EncodeBatch(in)
	require.NoError(t, err)

	out, err := DecodeBatch(b)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestEncode_FieldNumbersArePinned(t *testing.T) {
	b, err := EncodeBatch([]Record{{
		ID: "1", Email: "2", Role: "3", Status: "4", CreatedAt: "5", EmailHash: "6", Signature: "7",
	}})
	require.NoError(t, err)

	want := []byte{
		0x0a, 0x15, // users = 1, len 21
		0x0a, 0x01, '1',
		0x12, 0x01, '2',
		0x1a, 0x01, '3',
		0x22, 0x01, '4',
		0x2a, 0x01, '5',
		0x32, 0x01, '6',
		0x3a, 0x01, '7',
	}
	require.Equal(t, want, b)
}

func TestEncode_EmptyBatch(t *testing.T) {
	b, err := EncodeBatch(nil)
	require.NoError(t, err)
	require.Empty(t, b)

	out, err := DecodeBatch(b)
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Empty(t, out)
}

func TestEncode_RejectsMissingField(t *testing.T) {
	cases := map[string]func(*Record){
		"id":        func(r *Record) { r.ID = "" },
		"email":     func(r *Record) { r.Email = "" },
		"role":      func(r *Record) { r.Role = "" },
		"status":    func(r *Record) { r.Status = "" },
		"createdAt": func(r *Record) { r.CreatedAt = "" },
		"emailHash": func(r *Record) { r.EmailHash = "" },
		"signature": func(r *Record) { r.Signature = "" },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			bad := sampleRecord("b@example.com")
			mutate(&bad)

			_, err := EncodeBatch([]Record{sampleRecord("a@example.com"), bad})
			require.ErrorIs(t, err, ErrMissingField)

			var mf *MissingFieldError
			require.True(t, errors.As(err, &mf))
			require.Equal(t, 1, mf.Index)
			require.Equal(t, field, mf.Field)
		})
	}
}

func TestDecode_MissingFieldsDefaultToEmpty(t *testing.T) {
	var user []byte
	user = protowire.AppendTag(user, fieldEmail, protowire.BytesType)
	user = protowire.AppendString(user, "only@example.com")

	var list []byte
	list = protowire.AppendTag(list, fieldUsers, protowire.BytesType)
	list = protowire.AppendBytes(list, user)

	out, err := DecodeBatch(list)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, Record{Email: "only@example.com"}, out[0])
}

func TestDecode_SkipsUnknownFields(t *testing.T) {
	rec := sampleRecord("jane.doe@example.com")

	user := appendRecord(nil, &rec)
	user = protowire.AppendTag(user, 42, protowire.VarintType)
	user = protowire.AppendVarint(user, 7)
	user = protowire.AppendTag(user, 43, protowire.Fixed64Type)
	user = protowire.AppendFixed64(user, 0xdeadbeef)
	// número conocido con wire type incorrecto: se ignora
	user = protowire.AppendTag(user, fieldRole, protowire.VarintType)
	user = protowire.AppendVarint(user, 1)

	var list []byte
	list = protowire.AppendTag(list, 9, protowire.BytesType)
	list = protowire.AppendString(list, "batch metadata")
	list = protowire.AppendTag(list, fieldUsers, protowire.BytesType)
	list = protowire.AppendBytes(list, user)

	out, err := DecodeBatch(list)
	require.NoError(t, err)
	require.Equal(t, []Record{rec}, out)
}

func TestDecode_Malformed(t *testing.T) {
	good, err := EncodeBatch([]Record{sampleRecord("jane.doe@example.com")})
	require.NoError(t, err)

	cases := map[string][]byte{
		"truncated":   good[:len(good)-3],
		"bad tag":     {0x00},
		"huge length": {0x0a, 0xff, 0xff, 0xff, 0xff, 0x0f},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeBatch(payload)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 678_000_000, time.FixedZone("CET", 3600))
	require.Equal(t, "2024-01-02T02:04:05.678Z", FormatTimestamp(ts))

	whole := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.Equal(t, "2024-01-02T03:04:05.000Z", FormatTimestamp(whole))

	parsed, err := ParseTimestamp(FormatTimestamp(ts))
	require.NoError(t, err)
	require.True(t, parsed.Equal(ts))

	_, err = ParseTimestamp("yesterday")
	require.Error(t, err)
}
