package device

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	uaIPhone  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1"
	uaAndroid = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36"
	uaIPad    = "Mozilla/5.0 (iPad; CPU OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1"
	uaChrome  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	uaEdge    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.2478.51"
	uaFirefox = "Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0"
	uaSafari  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4.1 Safari/605.1.15"
)

func TestName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		ua   string
		want string
	}{
		{name: "iphone", ua: uaIPhone, want: NameIPhone},
		{name: "android before chrome", ua: uaAndroid, want: NameAndroid},
		{name: "generic mobile", ua: uaIPad, want: NameMobile},
		{name: "chrome", ua: uaChrome, want: NameChrome},
		{name: "edge before chrome", ua: uaEdge, want: NameEdge},
		{name: "firefox", ua: uaFirefox, want: NameFirefox},
		{name: "safari", ua: uaSafari, want: NameSafari},
		{name: "curl", ua: "curl/8.5.0", want: NameDesktop},
		{name: "empty", ua: "", want: NameDesktop},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Name(tc.ua))
		})
	}
}

func TestFingerprint_DeterministicAndFixedLength(t *testing.T) {
	t.Parallel()

	a := Fingerprint(uaChrome, "10.0.0.1")
	b := Fingerprint(uaChrome, "10.0.0.1")
	require.Equal(t, a, b)
	require.Len(t, a, FingerprintLen)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), a)

	assert.NotEqual(t, a, Fingerprint(uaChrome, "10.0.0.2"))
	assert.NotEqual(t, a, Fingerprint(uaFirefox, "10.0.0.1"))
	assert.Len(t, Fingerprint("", ""), FingerprintLen)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	info := Resolve(uaFirefox, "192.0.2.7")
	assert.Equal(t, NameFirefox, info.Name)
	assert.Equal(t, uaFirefox, info.UserAgent)
	assert.Equal(t, "192.0.2.7", info.IPAddress)
	assert.Equal(t, Fingerprint(uaFirefox, "192.0.2.7"), info.Fingerprint)
}
