// Package device derives advisory device identity from request metadata.
//
// The fingerprint is a labeling aid for the session-management UI. It is not a
// security boundary and collisions are tolerated.
package device

import (
	"strings"

	"servicedesk/cmd/security/token"
)

// FingerprintLen is the number of hex chars kept from the SHA-256 digest.
const FingerprintLen = 32

// Device names produced by Resolve.
const (
	NameIPhone  = "iPhone"
	NameAndroid = "Android"
	NameMobile  = "Mobile"
	NameEdge    = "Edge Desktop"
	NameFirefox = "Firefox Desktop"
	NameChrome  = "Chrome Desktop"
	NameSafari  = "Safari Desktop"
	NameDesktop = "Desktop"
)

// Info describes the client device that opened a session.
type Info struct {
	Fingerprint string
	Name        string
	UserAgent   string
	IPAddress   string
}

type rule struct {
	markers []string
	name    string
}

// Order matters: mobile markers first, then browsers whose UA embeds another
// browser's token (Edge carries "Chrome/", Chrome carries "Safari/").
var rules = []rule{
	{markers: []string{"iPhone"}, name: NameIPhone},
	{markers: []string{"Android"}, name: NameAndroid},
	{markers: []string{"Mobile"}, name: NameMobile},
	{markers: []string{"Edg/", "Edge/"}, name: NameEdge},
	{markers: []string{"Firefox/"}, name: NameFirefox},
	{markers: []string{"Chrome/"}, name: NameChrome},
	{markers: []string{"Safari/"}, name: NameSafari},
}

// Resolve returns the device identity for a user agent and source IP.
// It never fails; unknown inputs fall back to the generic desktop label.
func Resolve(userAgent, sourceIP string) Info {
	return Info{
		Fingerprint: Fingerprint(userAgent, sourceIP),
		Name:        Name(userAgent),
		UserAgent:   userAgent,
		IPAddress:   sourceIP,
	}
}

// Fingerprint returns the truncated SHA-256 hex digest of userAgent + "-" + sourceIP.
func Fingerprint(userAgent, sourceIP string) string {
	return token.ShortHashHex(userAgent+"-"+sourceIP, FingerprintLen)
}

// Name classifies a user agent into one of the closed set of device names.
func Name(userAgent string) string {
	for _, r := range rules {
		for _, m := range r.markers {
			if strings.Contains(userAgent, m) {
				return r.name
			}
		}
	}
	return NameDesktop
}
