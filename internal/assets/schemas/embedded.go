// Package schemasassets provides embedded JSON schemas for standalone binary behavior.
//
// Schemas are embedded at compile time so validation works regardless of the
// working directory or installation location.
package schemasassets

import _ "embed"

// StorageProfilesSchema is the embedded storage-profiles JSON schema.
//
//go:embed storage-profiles.schema.json
var StorageProfilesSchema []byte
