// Package run coordinates one scan run against a single target: it names the
// run, lays out its output directories, hands a task to each scanner and folds
// their summaries into a Report.
package run

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// fingerprintLen is the number of hex characters kept from the target hash.
const fingerprintLen = 8

// Identity names a run. It is a pure function of the target and the run's
// timestamp and is not a security token.
type Identity struct {
	Target      string
	CreatedAt   int64
	Fingerprint string
	RunID       string
}

// NewIdentity trims target and derives the run identity for it at epoch
// second now. An empty target is an InputError.
func NewIdentity(target string, now int64) (Identity, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return Identity{}, &InputError{Msg: "target cannot be empty"}
	}

	fp := Fingerprint(target)
	return Identity{
		Target:      target,
		CreatedAt:   now,
		Fingerprint: fp,
		RunID:       fmt.Sprintf("run_%s_%d", fp, now),
	}, nil
}

// Fingerprint returns the first 8 hex characters of the SHA-1 of s.
func Fingerprint(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}
