// Package web embeds the static browser front end.
package web

import (
	"embed"
	"io/fs"
)

//go:embed assets
var files embed.FS

// Assets is rooted at the assets directory so index.html serves at "/".
var Assets fs.FS

func init() {
	sub, err := fs.Sub(files, "assets")
	if err != nil {
		panic(err)
	}
	Assets = sub
}
