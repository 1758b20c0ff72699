package urlutil

import (
	"net/url"
	"strings"

	"github.com/unkn0wn-root/wsterm/internal/wsfile"
)

// BuildQueryString encodes parameters in declaration order. net/url's
// Values.Encode would sort keys, which breaks servers that care about
// positional parameters, so pairs are assembled by hand.
func BuildQueryString(params []wsfile.QueryParam) string {
	if len(params) == 0 {
		return ""
	}
	var b strings.Builder
	for i, param := range params {
		// A pair without a key has no addressable name; rendering it would
		// produce a bare "=value" fragment.
		if param.Key == "" {
			continue
		}
		if i > 0 && b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(param.Key))
		if param.Value != "" {
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(param.Value))
		}
	}
	return b.String()
}

// JoinURLAndQueryString appends qs to base, reusing an existing "?" and
// tolerating a trailing "?" or "&" already present on the base.
func JoinURLAndQueryString(base, qs string) string {
	if qs == "" {
		return base
	}
	if base == "" {
		return qs
	}
	switch {
	case strings.HasSuffix(base, "?"), strings.HasSuffix(base, "&"):
		return base + qs
	case strings.Contains(base, "?"):
		return base + "&" + qs
	default:
		return base + "?" + qs
	}
}
