package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var tokenNamespace = uuid.MustParse("6f1c2a3e-8b5d-4e2f-9a7c-1d3e5f7a9b0c")

// IdempotencyToken identifies one submission intent. It is derived from the
// symbol, the evaluated bar and the direction, so a repeated evaluation of the
// same bar produces the same token.
type IdempotencyToken string

// NewIdempotencyToken derives the token for a cycle.
func NewIdempotencyToken(pair Pair, barOpen time.Time, d Direction) IdempotencyToken {
	name := fmt.Sprintf("%s|%d|%s", pair.Symbol(), barOpen.UnixMilli(), d)
	return IdempotencyToken(uuid.NewSHA1(tokenNamespace, []byte(name)).String())
}

func (t IdempotencyToken) String() string { return string(t) }

// Compact returns the token without dashes (32 hex chars).
func (t IdempotencyToken) Compact() string {
	return strings.ReplaceAll(string(t), "-", "")
}
