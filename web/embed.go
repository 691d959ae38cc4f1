// Package web holds the embedded HTML templates and browser assets.
package web

import "embed"

//go:embed templates static
var FS embed.FS
