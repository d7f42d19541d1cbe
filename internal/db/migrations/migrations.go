// Package migrations expone los scripts SQL embebidos para goose.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
