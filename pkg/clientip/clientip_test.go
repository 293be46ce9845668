package clientip

import (
	"net/http/httptest"
	"testing"
)

func TestFromRequest(t *testing.T) {
	if err := SetTrustedProxies([]string{"10.0.0.0/8", "192.168.1.1"}); err != nil {
		t.Fatalf("SetTrustedProxies: %v", err)
	}
	t.Cleanup(func() { _ = SetTrustedProxies(nil) })

	cases := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"direct", "203.0.113.9:5000", "", "203.0.113.9"},
		{"untrusted remote ignores header", "203.0.113.9:5000", "1.2.3.4", "203.0.113.9"},
		{"trusted proxy", "10.1.2.3:80", "198.51.100.7", "198.51.100.7"},
		{"proxy chain", "10.1.2.3:80", "198.51.100.7, 192.168.1.1", "198.51.100.7"},
		{"spoofed left hop", "10.1.2.3:80", "6.6.6.6, 198.51.100.7", "198.51.100.7"},
		{"garbage header", "10.1.2.3:80", "not-an-ip", "10.1.2.3"},
		{"no port", "198.51.100.1", "", "198.51.100.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tc.remote
			if tc.xff != "" {
				r.Header.Set("X-Forwarded-For", tc.xff)
			}
			if got := FromRequest(r); got != tc.want {
				t.Fatalf("FromRequest = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSetTrustedProxiesRejectsGarbage(t *testing.T) {
	if err := SetTrustedProxies([]string{"nope"}); err == nil {
		t.Fatal("expected error")
	}
	if err := SetTrustedProxies([]string{"10.0.0.0/99"}); err == nil {
		t.Fatal("expected error")
	}
}
