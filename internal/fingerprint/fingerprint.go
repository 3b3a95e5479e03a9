// Package fingerprint derives stable identities for posted time entries.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key lists the fields that identify a time entry. Two entries are the same
// only when every field matches exactly.
type Key struct {
	SheetID  string
	TicketID string
	Date     string
	Start    string
	End      string
	TaskID   string
}

// Compute returns the first 16 hex characters of the SHA-256 of the key.
func Compute(k Key) string {
	base := strings.Join([]string{k.SheetID, k.TicketID, k.Date, k.Start, k.End, k.TaskID}, "|")
	sum := sha256.Sum256([]byte(base))
	return hex.EncodeToString(sum[:])[:16]
}
