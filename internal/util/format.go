package util

import "github.com/dustin/go-humanize"

// FormatBytes formats a byte count in IEC units (KiB, MiB, ...)
func FormatBytes[T int64 | uint64](n T) string {
	return humanize.IBytes(uint64(n))
}
