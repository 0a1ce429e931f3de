package schemas

import "embed"

// FS holds the JSON schemas for payloads crossing the load boundary.
//
//go:embed *.schema.json
var FS embed.FS

const Dataset = "dataset.schema.json"
