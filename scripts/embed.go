// Package scripts embeds the default Risor autoload scripts. Config files
// refer to them with the "builtin:" prefix, e.g. "builtin:autoload/psr4.risor".
package scripts

import "embed"

//go:embed autoload/*.risor
var FS embed.FS
