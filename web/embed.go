package web

import "embed"

// Static embeds the assets served by the API, including the fallback mock
// document at static/mock/data.json.
//
//go:embed static
var Static embed.FS
