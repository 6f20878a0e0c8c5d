package views

import "embed"

// Assets holds the page script and stylesheet, served under /assets.
//
//go:embed assets
var Assets embed.FS
