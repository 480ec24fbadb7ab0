package packagemanager

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// domainTokens are dropped from package names wherever they appear.
var domainTokens = map[string]bool{
	"com":     true,
	"org":     true,
	"net":     true,
	"io":      true,
	"app":     true,
	"android": true,
	"www":     true,
	"co":      true,
	"me":      true,
	"dev":     true,
	"gov":     true,
	"edu":     true,
}

// DisplayName derives a human readable name from a package name:
// "com.example.myapp" becomes "Example Myapp". When every segment is a domain
// token the package name is returned unchanged. DisplayName(DisplayName(x)) == DisplayName(x).
func DisplayName(packageName string) string {
	var words []string
	for _, segment := range strings.FieldsFunc(packageName, func(r rune) bool { return r == '.' }) {
		segment = strings.TrimSpace(segment)
		if segment == "" || domainTokens[strings.ToLower(segment)] {
			continue
		}
		words = append(words, capitalize(segment))
	}
	if len(words) == 0 {
		return packageName
	}
	return strings.Join(words, " ")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
