package cache

import (
	"encoding/hex"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// HashBytes returns the hex BLAKE2b-256 digest of b.
func HashBytes(b []byte) string {
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashString returns the hex BLAKE2b-256 digest of s.
func HashString(s string) string {
	return HashBytes([]byte(s))
}

// HashFile streams the file at path through BLAKE2b-256.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ResponseKey identifies a translator response for one file version:
// "<op>:<pathHash>:<contentHash>".
func ResponseKey(operation, path, content string) string {
	if operation == "" {
		operation = "translate"
	}
	return operation + ":" + HashString(path) + ":" + HashString(content)
}

// TextKey identifies a response for a single text with optional context:
// "<op>:text:<textHash>[:<contextHash>]".
func TextKey(text, operation, context string) string {
	if operation == "" {
		operation = "translate"
	}
	key := operation + ":text:" + HashString(text)
	if context != "" {
		key += ":" + HashString(context)
	}
	return key
}
