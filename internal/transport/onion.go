package transport

import (
	"encoding/base32"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	// OnionSuffix is the top-level domain of onion services.
	OnionSuffix = ".onion"

	// onionV3Version is the version byte embedded in v3 addresses.
	onionV3Version = 0x03
)

var (
	onionV3Pattern = regexp.MustCompile(`^[a-z2-7]{56}\.onion$`)
	onionV2Pattern = regexp.MustCompile(`^[a-z2-7]{16}\.onion$`)

	checksumPrefix = []byte(".onion checksum")
)

// IsOnionHost reports whether host (without port) is in the .onion TLD.
func IsOnionHost(host string) bool {
	return strings.HasSuffix(strings.ToLower(host), OnionSuffix)
}

// IsValidV3Address reports whether address is a v3 onion host name with a
// correct checksum: base32(pubkey || checksum || version) + ".onion", where
// checksum is the first two bytes of SHA3-256(".onion checksum" || pubkey || version).
func IsValidV3Address(address string) bool {
	address = strings.ToLower(address)
	if !onionV3Pattern.MatchString(address) {
		return false
	}

	decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(strings.TrimSuffix(address, OnionSuffix)))
	if err != nil || len(decoded) != 35 {
		return false
	}

	pubkey, checksum, version := decoded[:32], decoded[32:34], decoded[34]
	if version != onionV3Version {
		return false
	}

	want := v3Checksum(pubkey, version)
	return checksum[0] == want[0] && checksum[1] == want[1]
}

// v3Checksum returns the two checksum bytes for pubkey and version.
func v3Checksum(pubkey []byte, version byte) []byte {
	data := make([]byte, 0, len(checksumPrefix)+len(pubkey)+1)
	data = append(data, checksumPrefix...)
	data = append(data, pubkey...)
	data = append(data, version)

	sum := sha3.Sum256(data)
	return sum[:2]
}

// V3AddressFromPublicKey computes the onion host for an ed25519 public key.
func V3AddressFromPublicKey(pubkey []byte) (string, error) {
	if len(pubkey) != 32 {
		return "", ErrInvalidOnionAddress
	}

	data := make([]byte, 35)
	copy(data[:32], pubkey)
	copy(data[32:34], v3Checksum(pubkey, onionV3Version))
	data[34] = onionV3Version

	return strings.ToLower(base32.StdEncoding.EncodeToString(data)) + OnionSuffix, nil
}

// NormalizeOnionHost extracts the host from an onion URL or bare host name,
// lowercases it and validates it. Scheme, port, path, query and fragment
// are dropped; a missing ".onion" suffix is added.
func NormalizeOnionHost(raw string) (string, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidOnionAddress
	}

	host := u.Hostname()
	if !strings.HasSuffix(host, OnionSuffix) {
		host += OnionSuffix
	}

	if !IsValidV3Address(host) {
		if onionV2Pattern.MatchString(host) {
			return "", ErrV2AddressDeprecated
		}
		return "", ErrInvalidOnionAddress
	}
	return host, nil
}
