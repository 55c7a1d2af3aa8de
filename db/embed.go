// Package db embeds the storefront schema so binaries can migrate without
// shipping SQL files alongside them.
package db

import _ "embed"

// Schema holds the DDL for the products, campaigns, coupons, carts and
// orders tables. It is idempotent and safe to run on every startup.
//
//go:embed migrations/001_schema.sql
var Schema string
