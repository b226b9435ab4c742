// Package appfs embeds the files shipped inside the binaries:
// SQL migrations, email templates and the common passwords list.
package appfs

import "embed"

//go:embed migrations/*.sql assets
var FS embed.FS
