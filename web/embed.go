package web

import (
	"embed"
	"io/fs"
)

// staticFiles bundles the dashboard stylesheet and scripts.
//
//go:embed static/*
var staticFiles embed.FS

// templateFiles bundles the server-rendered page templates.
//
//go:embed templates/*
var templateFiles embed.FS

// Static returns a filesystem rooted at the bundled static assets.
func Static() (fs.FS, error) {
	return fs.Sub(staticFiles, "static")
}
