package netutil

import (
	"fmt"
	"net"
	"strconv"
)

func TCPPortAvailable(host string, port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}

// ChoosePort returns preferred when free, otherwise the next free port above it.
func ChoosePort(host string, preferred int) (int, error) {
	if preferred > 0 && TCPPortAvailable(host, preferred) {
		return preferred, nil
	}
	start := preferred + 1
	if start < 1024 {
		start = 1024
	}
	for p := start; p <= 65535; p++ {
		if TCPPortAvailable(host, p) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("no available port found from %d", preferred)
}

// BaseURLFromListen builds a user-facing origin for a listen address.
// Wildcard hosts are replaced by the detected public IP.
func BaseURLFromListen(listen string, secure bool) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil || port == "" {
		return ""
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = PublicIP()
	}
	scheme := "http"
	if secure {
		scheme = "https"
	}
	if (secure && port == "443") || (!secure && port == "80") {
		return scheme + "://" + hostForURL(host)
	}
	return scheme + "://" + net.JoinHostPort(host, port)
}

func hostForURL(host string) string {
	if ip := net.ParseIP(host); ip != nil && ip.To4() == nil {
		return "[" + host + "]"
	}
	return host
}
