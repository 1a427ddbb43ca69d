package scraper

import (
	"bytes"
	"net/http"
	"strings"
)

// Detector examines a page and names the bot protection that challenged
// the request, or returns "".
type Detector func(p *Page) string

// DefaultDetectors returns the standard list of bot protection detectors.
func DefaultDetectors() []Detector {
	return []Detector{
		detectCloudflare,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
	}
}

// DetectChallenge runs p through detectors and returns the first match.
func DetectChallenge(p *Page, detectors []Detector) string {
	if p == nil {
		return ""
	}
	for _, d := range detectors {
		if src := d(p); src != "" {
			return src
		}
	}
	return ""
}

func header(p *Page, key string) string {
	if p.Header == nil {
		return ""
	}
	return p.Header.Get(key)
}

func detectCloudflare(p *Page) string {
	if p.StatusCode != http.StatusForbidden && p.StatusCode != http.StatusServiceUnavailable {
		return ""
	}
	if strings.Contains(strings.ToLower(header(p, "Server")), "cloudflare") {
		return "Cloudflare"
	}
	for _, sig := range []string{"cf-browser-verification", "cloudflare-nginx", "cf-turnstile", "Attention Required! | Cloudflare"} {
		if bytes.Contains(p.Body, []byte(sig)) {
			return "Cloudflare"
		}
	}
	return ""
}

func detectAkamai(p *Page) string {
	if p.StatusCode != http.StatusForbidden {
		return ""
	}
	if strings.Contains(strings.ToLower(header(p, "Server")), "akamai") {
		return "Akamai"
	}
	// Akamai block pages carry a "Reference #" id.
	if bytes.Contains(p.Body, []byte("Reference #")) && bytes.Contains(p.Body, []byte("Access Denied")) {
		return "Akamai"
	}
	return ""
}

func detectDataDome(p *Page) string {
	if p.StatusCode != http.StatusForbidden {
		return ""
	}
	if strings.Contains(strings.ToLower(header(p, "Server")), "datadome") ||
		header(p, "X-DataDome") != "" || header(p, "X-DataDome-Response") != "" {
		return "DataDome"
	}
	if bytes.Contains(p.Body, []byte("geo.captcha-delivery.com")) || bytes.Contains(p.Body, []byte("datadome")) {
		return "DataDome"
	}
	return ""
}

func detectPerimeterX(p *Page) string {
	if p.StatusCode != http.StatusForbidden {
		return ""
	}
	if header(p, "X-Px-Captcha") != "" {
		return "PerimeterX"
	}
	for _, sig := range []string{"client.perimeterx.net", "px-captcha", "_pxBlock"} {
		if bytes.Contains(p.Body, []byte(sig)) {
			return "PerimeterX"
		}
	}
	return ""
}
