package types

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrEmptyTarget is returned when the target is blank after trimming.
var ErrEmptyTarget = errors.New("target cannot be empty")

// Target represents what to scan.
type Target struct {
	Raw    string `json:"raw"`
	Host   string `json:"host"`
	Port   int    `json:"port,omitempty"`
	URL    string `json:"url"`
	Scheme string `json:"scheme"`
}

// ParseTarget accepts a host, host:port, or full URL and normalizes it into a
// Target. Input without a scheme is treated as https, so host/path and
// host:port/path?query forms are accepted too. Raw keeps the trimmed input
// exactly as given; URL is always a fetchable absolute URL.
func ParseTarget(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, ErrEmptyTarget
	}

	full := raw
	if !strings.Contains(raw, "://") {
		full = "https://" + raw
	}

	t, err := parseURL(full)
	if err != nil {
		return Target{}, err
	}
	t.Raw = raw
	return t, nil
}

func parseURL(raw string) (Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("invalid URL %q: %w", raw, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return Target{}, fmt.Errorf("unsupported scheme %q (want http or https)", u.Scheme)
	}

	if u.Hostname() == "" {
		return Target{}, fmt.Errorf("URL %q has no hostname", raw)
	}

	t := Target{
		Raw:    raw,
		Host:   u.Hostname(),
		URL:    raw,
		Scheme: u.Scheme,
	}

	if u.Port() != "" {
		port, err := parsePort(u.Port())
		if err != nil {
			return Target{}, fmt.Errorf("invalid port in URL: %w", err)
		}
		t.Port = port
	}

	return t, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", s, err)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range (1-65535)", port)
	}
	return port, nil
}
