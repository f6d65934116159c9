package netutil

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// IPLookupURL answers with the caller's public address as plain text.
var IPLookupURL = "https://api.ipify.org"

// PublicIP returns the address a phone scanning a record link is most likely
// to reach: a public interface address, then the lookup service, then the
// first LAN address, then loopback.
func PublicIP() string {
	public, lan := interfaceIPs()
	if public != "" {
		return public
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if ip := lookupIP(ctx, IPLookupURL); ip != "" {
		return ip
	}
	if lan != "" {
		return lan
	}
	return "127.0.0.1"
}

func interfaceIPs() (public, lan string) {
	ifaces, _ := net.Interfaces()
	for _, iface := range ifaces {
		if (iface.Flags&net.FlagUp) == 0 || (iface.Flags&net.FlagLoopback) != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, addr := range addrs {
			ip := extractIP(addr)
			if ip == nil || ip.To4() == nil {
				continue
			}
			switch {
			case isPublicIP(ip) && public == "":
				public = ip.String()
			case ip.IsPrivate() && lan == "":
				lan = ip.String()
			}
		}
	}
	return public, lan
}

func lookupIP(ctx context.Context, endpoint string) string {
	if endpoint == "" {
		return ""
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ""
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return ""
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return ""
	}
	ip := strings.TrimSpace(string(b))
	if net.ParseIP(ip) == nil {
		return ""
	}
	return ip
}

func extractIP(addr net.Addr) net.IP {
	switch v := addr.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	default:
		s := addr.String()
		if i := strings.IndexByte(s, '/'); i >= 0 {
			s = s[:i]
		}
		return net.ParseIP(s)
	}
}

func isPublicIP(ip net.IP) bool {
	if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsMulticast() || ip.IsUnspecified() || ip.IsPrivate() {
		return false
	}
	return ip.IsGlobalUnicast()
}
