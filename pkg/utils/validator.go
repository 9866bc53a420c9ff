package utils

import (
	"fmt"
	"net"
	"strings"
)

func ValidateIP(ip string) error {
	if net.ParseIP(ip) == nil {
		return fmt.Errorf("invalid IP address: %s", ip)
	}
	return nil
}

func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be in range 1-65535: %d", port)
	}
	return nil
}

// ValidateHost accepts an IP address or an RFC 1123 hostname.
func ValidateHost(host string) error {
	if host == "" {
		return fmt.Errorf("host must not be empty")
	}
	if ValidateIP(host) == nil {
		return nil
	}
	if len(host) > 253 {
		return fmt.Errorf("hostname longer than 253 characters: %s", host)
	}

	for _, label := range strings.Split(strings.TrimSuffix(host, "."), ".") {
		if err := validateLabel(label); err != nil {
			return fmt.Errorf("invalid hostname %s: %w", host, err)
		}
	}
	return nil
}

func validateLabel(label string) error {
	if label == "" {
		return fmt.Errorf("empty label")
	}
	if len(label) > 63 {
		return fmt.Errorf("label %q longer than 63 characters", label)
	}
	for _, char := range label {
		if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-') {
			return fmt.Errorf("label %q contains %q", label, char)
		}
	}
	if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
		return fmt.Errorf("label %q starts or ends with a hyphen", label)
	}
	return nil
}

// ValidateHosts checks the master and every worker, reporting the first bad one.
func ValidateHosts(master string, workers []string) error {
	if err := ValidateHost(master); err != nil {
		return fmt.Errorf("master: %w", err)
	}
	for i, w := range workers {
		if err := ValidateHost(w); err != nil {
			return fmt.Errorf("worker %d: %w", i+1, err)
		}
	}
	return nil
}
