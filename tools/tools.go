//go:build tools
// +build tools

// Pins the goose CLI used to author and inspect migrations under
// internal/infra/db/migrations. Excluded from normal builds by the tag above.

package tools

import (
	_ "github.com/pressly/goose/v3/cmd/goose"
)
