package util

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// HashRecordKey creates an MD5 hash from a record's identifying and monetary
// fields, used for change detection between ingest runs.
func HashRecordKey(clientID, clientName, stateCode string, currentAmount, thresholdAmount float64) string {
	builder := strings.Builder{}
	builder.WriteString(strings.TrimSpace(strings.ToLower(clientID)))
	builder.WriteString("|")
	builder.WriteString(strings.TrimSpace(strings.ToLower(clientName)))
	builder.WriteString("|")
	builder.WriteString(strings.TrimSpace(strings.ToUpper(stateCode)))
	builder.WriteString("|")
	builder.WriteString(fmt.Sprintf("%.2f", currentAmount))
	builder.WriteString("|")
	builder.WriteString(fmt.Sprintf("%.2f", thresholdAmount))
	return hashString(builder.String())
}

// HashString returns the MD5 hash of an arbitrary string.
func HashString(input string) string {
	return hashString(strings.TrimSpace(strings.ToLower(input)))
}

func hashString(input string) string {
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}
