package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"":                       "",
		"Jane.Doe@Example.com":   "j…@e….com",
		"a@b.io":                 "a@b.io",
		"ops@mail.example.co.uk": "o…@m….example.co.uk",
		"root@localhost":         "r…@l…",
		"abc":                    "***",
		"not-an-email":           "n…l",
		"@example.com":           "@…m",
	}
	for in, want := range cases {
		require.Equal(t, want, MaskEmail(in), in)
	}
}
