// Package device derives human-readable client descriptions and stable
// fingerprints from User-Agent strings. Security audit events for console
// decisions record both, so an operator reviewing the trail can tell which
// client issued a decision and correlate decisions from the same client.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mssola/useragent"
)

// Service computes client fingerprints. When disabled it returns empty
// fingerprints, which callers treat as "nothing to record".
type Service struct {
	enabled bool
}

// NewService creates a device service. Pass false to disable fingerprinting.
func NewService(enabled bool) *Service {
	return &Service{enabled: enabled}
}

// ParseUserAgent turns a raw User-Agent into a short display name such as
// "Chrome on Macintosh". Empty input yields "Unknown Device".
func ParseUserAgent(rawUA string) string {
	trimmed := strings.TrimSpace(rawUA)
	if trimmed == "" {
		return "Unknown Device"
	}

	ua := useragent.New(trimmed)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}

	platform := ua.Platform()
	if platform == "" {
		platform = ua.OSInfo().Name
	}
	if platform == "" {
		platform = "Unknown Platform"
	}

	// Collapse any double spaces the parser output may contain.
	return strings.Join(strings.Fields(browser+" on "+platform), " ")
}

// ComputeFingerprint hashes the stable parts of a User-Agent: browser name,
// major version, platform, and OS family. Minor and patch versions churn on
// auto-updates and are excluded so routine upgrades do not read as drift.
func (s *Service) ComputeFingerprint(rawUA string) string {
	if !s.enabled || strings.TrimSpace(rawUA) == "" {
		return ""
	}

	ua := useragent.New(strings.TrimSpace(rawUA))
	browser, version := ua.Browser()

	stable := strings.Join([]string{
		browser,
		majorVersion(version),
		ua.Platform(),
		ua.OSInfo().Name,
	}, "|")

	sum := sha256.Sum256([]byte(stable))
	return hex.EncodeToString(sum[:])
}

func majorVersion(version string) string {
	if i := strings.IndexByte(version, '.'); i > 0 {
		return version[:i]
	}
	return version
}
