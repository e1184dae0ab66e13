package mdv

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

const (
	recordTimeLayout = "20060102T150405.000000000Z"
	recordExt        = ".json"
	encryptedExt     = ".age"
)

// NormalizeFilePath converts a client-supplied logical path into the form
// stored in records: slash separated, no leading separators, lexically
// cleaned. Empty paths are rejected.
func NormalizeFilePath(filePath string) (string, error) {
	p := strings.TrimLeft(filepath.ToSlash(filePath), `/\`)
	if p == "" {
		return "", fmt.Errorf("%w: empty file path", ErrInvalidArgument)
	}
	cleaned := path.Clean(p)
	if cleaned == "." {
		return "", fmt.Errorf("%w: empty file path", ErrInvalidArgument)
	}
	return cleaned, nil
}

// SetKey derives the storage key of a file's version set from its normalized
// logical path.
func SetKey(filePath string) string {
	return fmt.Sprintf("%x", xxh3.Hash128([]byte(filePath)).Bytes())
}

// HashContent returns the SHA-256 of content as lowercase hex.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// recordKey names a record so that lexical order equals timestamp order.
func recordKey(ts time.Time, id string, encrypted bool) string {
	key := ts.UTC().Format(recordTimeLayout) + "_" + id + recordExt
	if encrypted {
		key += encryptedExt
	}
	return key
}

// parsedKey is the information carried by a record key.
type parsedKey struct {
	timestamp time.Time
	id        string
	encrypted bool
}

func parseRecordKey(key string) (parsedKey, bool) {
	var pk parsedKey
	name := key
	if strings.HasSuffix(name, encryptedExt) {
		pk.encrypted = true
		name = strings.TrimSuffix(name, encryptedExt)
	}
	if !strings.HasSuffix(name, recordExt) {
		return pk, false
	}
	name = strings.TrimSuffix(name, recordExt)

	ts, id, found := strings.Cut(name, "_")
	if !found || id == "" {
		return pk, false
	}
	t, err := time.Parse(recordTimeLayout, ts)
	if err != nil {
		return pk, false
	}
	pk.timestamp = t
	pk.id = id
	return pk, true
}
