package engine

import "strings"

// EnvVarName maps a parameter name to its process environment variable:
// the application uppercased, an underscore, then the name uppercased with
// every non-alphanumeric rune replaced by '_'.
//
//	EnvVarName("billing", "feature/x") == "BILLING_FEATURE_X"
//	EnvVarName("billing", "db.port")   == "BILLING_DB_PORT"
//
// This transformation is a stable contract: services set variables by it and
// changing it is a breaking change.
func EnvVarName(application, name string) string {
	var b strings.Builder
	b.Grow(len(application) + 1 + len(name))
	writeMapped(&b, application)
	b.WriteByte('_')
	writeMapped(&b, name)
	return b.String()
}

func writeMapped(b *strings.Builder, s string) {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - ('a' - 'A'))
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
}
