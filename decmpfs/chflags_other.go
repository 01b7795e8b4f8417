//go:build !darwin

package decmpfs

import "errors"

// Non-Darwin targets have no UF_COMPRESSED equivalent; returning an error
// here drives CreateFile's normal fallback-to-plain-write path rather than
// requiring every caller to special-case the platform.
func chflagsCompressed(string) error {
	return errors.New("decmpfs: UF_COMPRESSED unsupported on this platform")
}
