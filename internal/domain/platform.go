package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Platform is a supported social network. The set is closed: values only come from
// ParsePlatform or the constants below.
type Platform int

const (
	PlatformInstagram Platform = iota + 1
	PlatformTwitter
	PlatformLinkedIn
	PlatformFacebook
	PlatformTikTok
)

// AllPlatforms lists every supported platform in declaration order
var AllPlatforms = []Platform{
	PlatformInstagram,
	PlatformTwitter,
	PlatformLinkedIn,
	PlatformFacebook,
	PlatformTikTok,
}

var ErrUnsupportedPlatform = errors.New("unsupported platform")

var platformNames = map[Platform]string{
	PlatformInstagram: "instagram",
	PlatformTwitter:   "twitter",
	PlatformLinkedIn:  "linkedin",
	PlatformFacebook:  "facebook",
	PlatformTikTok:    "tiktok",
}

var platformDisplayNames = map[Platform]string{
	PlatformInstagram: "Instagram",
	PlatformTwitter:   "Twitter",
	PlatformLinkedIn:  "LinkedIn",
	PlatformFacebook:  "Facebook",
	PlatformTikTok:    "TikTok",
}

// ParsePlatform maps a platform name to the closed enum. "x" is accepted as Twitter.
func ParsePlatform(s string) (Platform, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "x" {
		return PlatformTwitter, nil
	}
	for p, n := range platformNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, s)
}

// Valid reports whether p is one of the declared platforms
func (p Platform) Valid() bool {
	_, ok := platformNames[p]
	return ok
}

// String returns the wire name of the platform
func (p Platform) String() string {
	if n, ok := platformNames[p]; ok {
		return n
	}
	return ""
}

// DisplayName returns the human-readable platform name
func (p Platform) DisplayName() string {
	return platformDisplayNames[p]
}

// MarshalText implements encoding.TextMarshaler
func (p Platform) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPlatform, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Platform) UnmarshalText(b []byte) error {
	parsed, err := ParsePlatform(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
