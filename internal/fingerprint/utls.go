// Package fingerprint builds HTTP transports that present a browser TLS
// ClientHello.
package fingerprint

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// Profile represents a recognized TLS fingerprint profile.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // standard go TLS
	ProfileRandom  Profile = "random" // randomized uTLS profile
)

// ParseProfile maps a configuration value onto a Profile. Empty means chrome.
func ParseProfile(s string) (Profile, error) {
	switch p := Profile(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ProfileChrome, nil
	case ProfileChrome, ProfileFirefox, ProfileSafari, ProfileGo, ProfileRandom:
		return p, nil
	default:
		return "", fmt.Errorf("fingerprint: unknown profile %q", s)
	}
}

// Options tune the transport.
type Options struct {
	// Proxy is optional; nil uses the environment (HTTP_PROXY and friends).
	Proxy func(*http.Request) (*url.URL, error)
	// InsecureSkipVerify disables certificate checks. Tests only.
	InsecureSkipVerify bool
}

// Transport returns an http.RoundTripper presenting the ClientHello of p.
// The handshake only offers http/1.1 so the stock transport can speak to
// whatever the server negotiates.
func Transport(p Profile, opts Options) (http.RoundTripper, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != nil {
		transport.Proxy = opts.Proxy
	}

	if p == ProfileGo {
		if opts.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		return transport, nil
	}

	newConn, err := helloFactory(p)
	if err != nil {
		return nil, err
	}

	dial := transport.DialContext
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		uConn, err := newConn(tcpConn, &utls.Config{
			ServerName:         host,
			InsecureSkipVerify: opts.InsecureSkipVerify,
		})
		if err != nil {
			_ = tcpConn.Close()
			return nil, err
		}
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("fingerprint: utls handshake with %s failed: %w", host, err)
		}
		return uConn, nil
	}

	return transport, nil
}

type connFactory func(net.Conn, *utls.Config) (*utls.UConn, error)

func helloFactory(p Profile) (connFactory, error) {
	var id utls.ClientHelloID
	switch p {
	case ProfileChrome:
		id = utls.HelloChrome_Auto
	case ProfileFirefox:
		id = utls.HelloFirefox_Auto
	case ProfileSafari:
		id = utls.HelloIOS_Auto
	case ProfileRandom:
		return func(c net.Conn, cfg *utls.Config) (*utls.UConn, error) {
			return utls.UClient(c, cfg, utls.HelloRandomizedNoALPN), nil
		}, nil
	default:
		return nil, fmt.Errorf("fingerprint: unknown profile %q", p)
	}

	if _, err := utls.UTLSIdToSpec(id); err != nil {
		return nil, fmt.Errorf("fingerprint: %s spec: %w", p, err)
	}
	return func(c net.Conn, cfg *utls.Config) (*utls.UConn, error) {
		spec, err := utls.UTLSIdToSpec(id)
		if err != nil {
			return nil, fmt.Errorf("fingerprint: %s spec: %w", p, err)
		}
		http1Only(&spec)
		u := utls.UClient(c, cfg, utls.HelloCustom)
		if err := u.ApplyPreset(&spec); err != nil {
			return nil, fmt.Errorf("fingerprint: apply %s preset: %w", p, err)
		}
		return u, nil
	}, nil
}

// http1Only restricts the ALPN extension of spec to http/1.1. Specs are
// built per connection since ApplyPreset mutates their extensions.
func http1Only(spec *utls.ClientHelloSpec) {
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}
}
