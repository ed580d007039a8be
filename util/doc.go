// Package util provides small generic helpers shared by spacekit packages:
// pointer helpers, map copying, size parsing and secret masking.
package util
