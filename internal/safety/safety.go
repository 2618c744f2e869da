// Package safety implements the URL safety filter: SSRF defense for
// outbound fetches. It classifies hosts as public vs. private/loopback/
// link-local, validates URLs before the first request, and supplies an
// http.Client redirect policy that re-checks every hop.
package safety

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/crane-dl/crane/internal/types"
)

// blockedHostnames are known-internal names rejected regardless of how
// they resolve.
var blockedHostnames = map[string]bool{
	"localhost":                 true,
	"metadata.google.internal":  true,
	"metadata.internal":         true,
}

// maxRedirects caps the chain length the safe redirect policy will follow.
const maxRedirects = 10

// IsPublicHost reports whether host (a hostname or IP literal, optionally
// bracketed) is safe to contact: not a blocked hostname and, if it parses
// as an IP literal, not loopback/private/link-local/unique-local/
// unspecified. Unresolved DNS names are allowed here; redirect-time
// re-validation is what catches DNS-based rebinding.
func IsPublicHost(host string) bool {
	lower := strings.ToLower(host)
	if blockedHostnames[lower] {
		return false
	}

	if ip := net.ParseIP(host); ip != nil {
		return isPublicIP(ip)
	}

	stripped := strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if ip := net.ParseIP(stripped); ip != nil {
		return isPublicIP(ip)
	}

	return true
}

// isPublicIP judges IPv4 addresses and IPv4-mapped IPv6 addresses
// (::ffff:a.b.c.d) by IPv4 rules; everything else by IPv6 rules.
// net.IP.To4 returns non-nil for both forms.
func isPublicIP(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil {
		return isPublicIPv4(v4)
	}
	return isPublicIPv6(ip)
}

func isPublicIPv4(v4 net.IP) bool {
	o := v4
	switch {
	case o[0] == 127: // loopback
		return false
	case o[0] == 10: // RFC1918
		return false
	case o[0] == 172 && o[1] >= 16 && o[1] <= 31: // RFC1918
		return false
	case o[0] == 192 && o[1] == 168: // RFC1918
		return false
	case o[0] == 169 && o[1] == 254: // link-local, incl. cloud metadata
		return false
	case o[0] == 0: // unspecified
		return false
	default:
		return true
	}
}

func isPublicIPv6(ip net.IP) bool {
	if ip.Equal(net.IPv6loopback) {
		return false
	}
	if ip.Equal(net.IPv6unspecified) {
		return false
	}
	b := ip.To16()
	if b == nil {
		return true
	}
	// fe80::/10
	if b[0] == 0xfe && (b[1]&0xc0) == 0x80 {
		return false
	}
	// fc00::/7
	if (b[0] & 0xfe) == 0xfc {
		return false
	}
	return true
}

// Validate fails if rawURL's scheme is not http/https or its host is
// non-public.
func Validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return types.WrapError(types.ErrURLParse, "malformed URL", err)
	}
	return validateParsed(u)
}

func validateParsed(u *url.URL) error {
	switch u.Scheme {
	case "http", "https":
	default:
		return types.NewError(types.ErrUnsupportedScheme, u.Scheme)
	}

	if host := u.Hostname(); host != "" {
		if !IsPublicHost(host) {
			return types.NewError(types.ErrPrivateNetwork, host)
		}
	}
	return nil
}

// SafeRedirectPolicy returns an http.Client.CheckRedirect function that
// caps the redirect chain at maxRedirects and re-validates every hop
// against Validate before following it.
func SafeRedirectPolicy() func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("too many redirects")
		}
		if err := validateParsed(req.URL); err != nil {
			return err
		}
		return nil
	}
}
