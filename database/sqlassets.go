package sqlassets

import _ "embed"

// DocumentsSQL creates the JSONB table backing the Postgres document store.
//
//go:embed schema/documents.sql
var DocumentsSQL string
