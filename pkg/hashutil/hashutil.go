package hashutil

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"lukechampine.com/blake3"
)

type HashAlgo string

const (
	HashAlgoSHA256 HashAlgo = "sha256"
	HashAlgoBLAKE3 HashAlgo = "blake3"
)

// HashBytes returns the hash of bytes as a hex string using the specified algorithm.
// Supported algorithms: "sha256" and "blake3".
func HashBytes(data []byte, algo HashAlgo) (string, error) {
	switch algo {
	case HashAlgoSHA256:
		return hashBytesSha256(data), nil
	case HashAlgoBLAKE3:
		return hashBytesBlake3(data), nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm: %s", algo)
	}
}

func hashBytesSha256(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func hashBytesBlake3(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Checksum returns the blake3 digest of data prefixed with the algorithm
// name ("blake3:<hex>"), so persisted checksums stay self-describing.
func Checksum(data []byte) string {
	return string(HashAlgoBLAKE3) + ":" + hashBytesBlake3(data)
}

// Verify reports whether checksum matches data. Checksums produced with
// either supported algorithm are accepted.
func Verify(data []byte, checksum string) bool {
	algo, digest, ok := strings.Cut(checksum, ":")
	if !ok {
		return false
	}
	expected, err := HashBytes(data, HashAlgo(algo))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(digest)) == 1
}
