// Package appfs embeds the static assets shipped inside the binaries.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
