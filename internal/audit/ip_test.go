package audit

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{
			name:       "remote addr only",
			remoteAddr: "203.0.113.7:51234",
			want:       "203.0.113.7",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "203.0.113.7",
			want:       "203.0.113.7",
		},
		{
			name:       "single forwarded entry",
			remoteAddr: "10.0.0.1:443",
			forwarded:  "198.51.100.4",
			want:       "198.51.100.4",
		},
		{
			name:       "rightmost forwarded entry wins",
			remoteAddr: "10.0.0.1:443",
			forwarded:  "1.2.3.4, 198.51.100.4",
			want:       "198.51.100.4",
		},
		{
			name:       "forwarded entry with port",
			remoteAddr: "10.0.0.1:443",
			forwarded:  "198.51.100.4:8080",
			want:       "198.51.100.4",
		},
		{
			name:       "empty forwarded falls back",
			remoteAddr: "10.0.0.1:443",
			forwarded:  " ",
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIPToIntRoundTrip(t *testing.T) {
	n := IPToInt("192.168.0.1")
	if n == nil {
		t.Fatal("expected non-nil for valid IPv4")
	}
	if got := IntToIP(*n); got != "192.168.0.1" {
		t.Errorf("round trip = %q, want 192.168.0.1", got)
	}
}

func TestIPToIntInvalid(t *testing.T) {
	for _, addr := range []string{"", "not an ip", "::1", "2001:db8::1"} {
		if IPToInt(addr) != nil {
			t.Errorf("IPToInt(%q) should be nil", addr)
		}
	}
}

func TestCIDRRange(t *testing.T) {
	t.Run("bare address", func(t *testing.T) {
		start, end, ok := CIDRRange("10.0.0.5")
		if !ok {
			t.Fatal("expected ok")
		}
		if start != end {
			t.Errorf("bare address should be a single-point range, got [%d, %d]", start, end)
		}
		if IntToIP(start) != "10.0.0.5" {
			t.Errorf("start = %s, want 10.0.0.5", IntToIP(start))
		}
	})

	t.Run("cidr spans network to broadcast", func(t *testing.T) {
		start, end, ok := CIDRRange("192.168.1.0/24")
		if !ok {
			t.Fatal("expected ok")
		}
		if IntToIP(start) != "192.168.1.0" {
			t.Errorf("start = %s, want 192.168.1.0", IntToIP(start))
		}
		if IntToIP(end) != "192.168.1.255" {
			t.Errorf("end = %s, want 192.168.1.255", IntToIP(end))
		}
	})

	t.Run("host bits are masked off", func(t *testing.T) {
		start, _, ok := CIDRRange("192.168.1.77/24")
		if !ok {
			t.Fatal("expected ok")
		}
		if IntToIP(start) != "192.168.1.0" {
			t.Errorf("start = %s, want 192.168.1.0", IntToIP(start))
		}
	})

	t.Run("invalid expressions", func(t *testing.T) {
		for _, expr := range []string{"", "bogus", "10.0.0.0/33", "::1/64"} {
			if _, _, ok := CIDRRange(expr); ok {
				t.Errorf("CIDRRange(%q) should not parse", expr)
			}
		}
	})
}
