// Package transport builds the HTTP clients the crawler fetches pages with.
//
// Three routes are supported:
//   - Direct: a plain net/http client with TLS verification.
//   - Proxy: every connection goes through a SOCKS5 proxy
//     (golang.org/x/net/proxy), typically a running Tor daemon.
//   - Embedded Tor: a Tor daemon started and stopped by the process itself
//     (github.com/nao1215/tornago), exposed as a Proxy client.
//
// All routes produce a *Client; components take the *http.Client it hands
// out and never know which route is in use.
//
// The package also validates v3 .onion host names, so seeds can be rejected
// before a slow Tor circuit is built for a mistyped address.
package transport
