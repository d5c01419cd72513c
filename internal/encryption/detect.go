package encryption

import "strings"

// IsEncrypted reports whether s looks like a Cipher output, i.e. it splits on
// ":" into exactly two parts. This is a structural guess: plaintext with a
// single colon is classified as encrypted and will decrypt to UndecryptableText.
func IsEncrypted(s string) bool {
	return strings.Count(s, separator) == 1
}
