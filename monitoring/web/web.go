// Package web holds the dashboard served by the monitor.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
)

// AssetDirEnv names the environment variable that points the monitor at a
// directory of dashboard files to serve instead of the embedded ones. It is
// used while editing the dashboard.
const AssetDirEnv = "CACHESIM_MONITOR_ASSETS"

//go:embed dist/*
var staticAssets embed.FS

// GetAssets returns the dashboard files.
func GetAssets() http.FileSystem {
	if dir := os.Getenv(AssetDirEnv); dir != "" {
		fmt.Fprintf(os.Stderr, "Serving monitor assets from %s\n", dir)
		return http.Dir(dir)
	}

	dist, err := fs.Sub(staticAssets, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(dist)
}
