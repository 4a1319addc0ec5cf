package utils

import (
	"net"
	"net/url"
	"strings"
)

// IsPrivateURL reports whether rawURL points at a host that is not reachable
// from the public internet: localhost, RFC1918/loopback/link-local IPs,
// .local mDNS names and single-label LAN hostnames.
func IsPrivateURL(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}
	return IsPrivateHost(parsed.Hostname())
}

// IsPrivateHost is IsPrivateURL for a bare hostname or IP.
func IsPrivateHost(hostname string) bool {
	if hostname == "" {
		return false
	}
	if hostname == "localhost" || strings.HasSuffix(hostname, ".local") {
		return true
	}
	if ip := net.ParseIP(hostname); ip != nil {
		return isPrivateIP(ip)
	}
	// LAN names have no dots
	return !strings.Contains(hostname, ".")
}

// InsecureRemote reports whether bearer tokens sent to rawURL would cross a
// public network in cleartext.
func InsecureRemote(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.Scheme == "http" && !IsPrivateHost(parsed.Hostname())
}

var privateRanges = []*net.IPNet{
	mustParseCIDR("10.0.0.0/8"),
	mustParseCIDR("172.16.0.0/12"),
	mustParseCIDR("192.168.0.0/16"),
	mustParseCIDR("127.0.0.0/8"),
	mustParseCIDR("169.254.0.0/16"),
	mustParseCIDR("::1/128"),
	mustParseCIDR("fe80::/10"),
	mustParseCIDR("fc00::/7"),
}

func isPrivateIP(ip net.IP) bool {
	for _, network := range privateRanges {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func mustParseCIDR(s string) *net.IPNet {
	_, network, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return network
}
