package audit

import (
	"encoding/binary"
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the client IP address from an HTTP request. The rightmost
// X-Forwarded-For entry is used because it is the one appended by our own
// proxy; earlier entries are client-supplied and spoofable. Falls back to the
// connection's remote address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		last := strings.TrimSpace(parts[len(parts)-1])
		if last != "" {
			if host, _, err := net.SplitHostPort(last); err == nil {
				return host
			}
			return last
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IPToInt converts a dotted-quad IPv4 address to its 32-bit integer form.
// Returns nil when the input is not a valid IPv4 address.
func IPToInt(addr string) *uint32 {
	ip := net.ParseIP(addr)
	if ip == nil {
		return nil
	}
	v4 := ip.To4()
	if v4 == nil {
		return nil
	}
	n := binary.BigEndian.Uint32(v4)
	return &n
}

// IntToIP converts a 32-bit integer back to dotted-quad form.
func IntToIP(n uint32) string {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, n)
	return net.IP(b).String()
}

// CIDRRange resolves an IP filter expression to an inclusive [start, end]
// integer range. Accepts a bare IPv4 address (start == end) or CIDR notation,
// where the range spans network address through broadcast address.
// The second return value reports whether the expression was parsable.
func CIDRRange(expr string) (start, end uint32, ok bool) {
	if !strings.Contains(expr, "/") {
		n := IPToInt(expr)
		if n == nil {
			return 0, 0, false
		}
		return *n, *n, true
	}

	_, ipnet, err := net.ParseCIDR(expr)
	if err != nil {
		return 0, 0, false
	}
	v4 := ipnet.IP.To4()
	if v4 == nil {
		return 0, 0, false
	}

	start = binary.BigEndian.Uint32(v4)
	mask := binary.BigEndian.Uint32(net.IP(ipnet.Mask).To4())
	end = start | ^mask
	return start, end, true
}
