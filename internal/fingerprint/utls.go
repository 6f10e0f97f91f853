package fingerprint

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// Profile names a TLS client fingerprint to present on outbound requests.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // standard library TLS
	ProfileRandom  Profile = "random" // randomized uTLS profile
)

// Profiles lists every recognized profile name, for flag usage strings.
func Profiles() []string {
	return []string{
		string(ProfileChrome),
		string(ProfileFirefox),
		string(ProfileSafari),
		string(ProfileGo),
		string(ProfileRandom),
	}
}

// Parse validates a user-supplied profile name. The empty string maps to
// ProfileGo, the right default for talking to a JSON API.
func Parse(s string) (Profile, error) {
	switch p := Profile(strings.ToLower(strings.TrimSpace(s))); p {
	case ProfileChrome, ProfileFirefox, ProfileSafari, ProfileGo, ProfileRandom:
		return p, nil
	case "":
		return ProfileGo, nil
	default:
		return "", fmt.Errorf("unknown fingerprint profile %q", s)
	}
}

// Transport returns an http.RoundTripper presenting the given fingerprint.
// ProfileGo yields a plain cloned http.Transport; every other profile wraps
// the TLS dial with a uTLS handshake imitating that browser's ClientHello.
// proxyFunc, when non-nil, is installed as the transport's Proxy.
func Transport(p Profile, proxyFunc func(*http.Request) (*url.URL, error)) (http.RoundTripper, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyFunc != nil {
		transport.Proxy = proxyFunc
	}

	if p == ProfileGo {
		return transport, nil
	}

	var clientHelloID utls.ClientHelloID
	switch p {
	case ProfileChrome:
		clientHelloID = utls.HelloChrome_Auto
	case ProfileFirefox:
		clientHelloID = utls.HelloFirefox_Auto
	case ProfileSafari:
		clientHelloID = utls.HelloIOS_Auto
	case ProfileRandom:
		clientHelloID = utls.HelloRandomizedALPN
	default:
		return nil, fmt.Errorf("unknown fingerprint profile %q", p)
	}

	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := transport.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr // no port in addr
		}

		uConn := utls.UClient(tcpConn, &utls.Config{ServerName: host}, clientHelloID)
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("utls handshake: %w", err)
		}

		return uConn, nil
	}

	return transport, nil
}
