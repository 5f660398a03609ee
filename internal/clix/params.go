// Package clix holds small helpers for parsing flags shared by several
// commands.
package clix

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

type PaginationParams struct {
	Limit  int
	Offset int
}

// ParsePagination reads the --limit and --offset flags, substituting sane
// values for missing or nonsensical ones.
func ParsePagination(flags *pflag.FlagSet) PaginationParams {
	limit, _ := flags.GetInt("limit")
	offset, _ := flags.GetInt("offset")
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return PaginationParams{Limit: limit, Offset: offset}
}

// ParseDate reads the --date flag and validates its layout. An empty value
// is allowed; commands treat it as "not provided".
func ParseDate(flags *pflag.FlagSet) (string, error) {
	date, _ := flags.GetString("date")
	date = strings.TrimSpace(date)
	if date == "" {
		return "", nil
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", date)
	}
	return date, nil
}
