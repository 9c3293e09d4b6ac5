// Package util junta helpers chicos sin dependencias del dominio.
package util

import "strings"

// MaskEmail deja la primera letra del local y del primer label del dominio:
// "jane.doe@example.com" → "j…@e….com". Sirve para logs; no es reversible.
func MaskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" {
		if len(s) <= 3 {
			return "***"
		}
		return s[:1] + "…" + s[len(s)-1:]
	}
	if len(local) > 1 {
		local = local[:1] + "…"
	}
	label, rest, _ := strings.Cut(domain, ".")
	if len(label) > 1 {
		label = label[:1] + "…"
	}
	if rest != "" {
		return local + "@" + label + "." + rest
	}
	return local + "@" + label
}
