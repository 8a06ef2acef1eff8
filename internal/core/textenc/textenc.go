// Package textenc wraps the character-set utilities used to normalize the
// final extracted text encoding.
package textenc

import (
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DetectEncoding guesses the character encoding of a bounded byte prefix.
func DetectEncoding(prefix []byte) string {
	_, name, _ := charset.DetermineEncoding(prefix, "")
	return name
}

// Encode re-encodes text into the named target encoding.
func Encode(text, encodingName string) (string, error) {
	enc, err := htmlindex.Get(strings.ToLower(encodingName))
	if err != nil {
		return "", fmt.Errorf("unknown encoding %q: %w", encodingName, err)
	}
	out, _, err := transform.String(enc.NewEncoder(), text)
	if err != nil {
		return "", fmt.Errorf("re-encoding to %q: %w", encodingName, err)
	}
	return out, nil
}
