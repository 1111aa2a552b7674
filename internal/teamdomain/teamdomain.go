// Package teamdomain derives the Cloudflare Access endpoints for a team
// domain. Access publishes its signing keys and issues its tokens under
// https://<team-domain>, where the team domain is typically
// "<team>.cloudflareaccess.com".
package teamdomain

import "strings"

const certsPath = "/cdn-cgi/access/certs"

// Normalize strips a scheme prefix and trailing slashes from a configured
// team domain so the remaining forms agree regardless of how the value was
// supplied.
func Normalize(domain string) string {
	domain = strings.TrimSpace(domain)
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	return strings.TrimRight(domain, "/")
}

// IssuerURL returns the issuer Access uses for tokens of the given team.
func IssuerURL(domain string) string {
	return "https://" + Normalize(domain)
}

// CertsURL returns the public key endpoint for the given team.
func CertsURL(domain string) string {
	return "https://" + Normalize(domain) + certsPath
}
