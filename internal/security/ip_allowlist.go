package security

import (
	"net"
	"net/http"
	"strings"
)

// ParseCIDRAllowlist parses a list of CIDR strings, skipping blanks. It is a
// config-time helper: a bad entry fails startup rather than silently
// narrowing the allowlist at request time.
func ParseCIDRAllowlist(cidrs []string) ([]*net.IPNet, error) {
	var nets []*net.IPNet
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, err
		}
		nets = append(nets, n)
	}
	return nets, nil
}

// IPAllowlist rejects requests from addresses outside the given networks.
// An empty allowlist admits everyone; anything unparseable about the remote
// address is a rejection, not a pass.
func IPAllowlist(allow []*net.IPNet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allow) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			if !remoteAllowed(allow, r.RemoteAddr) {
				WriteJSONError(w, r, http.StatusForbidden, "forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func remoteAllowed(allow []*net.IPNet, remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return false
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}

	for _, n := range allow {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
