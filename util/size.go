package util

import (
	"fmt"
	"strconv"
	"strings"
)

var sizeUnits = []struct {
	suffix string
	mult   int64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// ParseSize parses a human-readable size ("10MB", "512KB", "2GB", "100B" or
// a bare byte count) into bytes. An empty string parses as zero.
func ParseSize(s string) (int64, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "" {
		return 0, nil
	}

	mult := int64(1)
	for _, u := range sizeUnits {
		if strings.HasSuffix(v, u.suffix) {
			mult = u.mult
			v = strings.TrimSpace(strings.TrimSuffix(v, u.suffix))
			break
		}
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * mult, nil
}

// MaskSecret hides the middle of a secret for safe display in logs, keeping
// visible characters at each end. Secrets too short to keep both ends
// readable are fully masked.
func MaskSecret(s string, visible int) string {
	if visible < 0 || len(s) <= visible*2 {
		return "***"
	}
	return s[:visible] + "***" + s[len(s)-visible:]
}
