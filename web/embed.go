// Package web holds the HTML templates and static assets, compiled into the
// binary.
//
// WHY go:embed?
// The server no longer depends on the working directory it was started
// from: the files travel inside the executable, and tests can parse the
// real templates without knowing where the repo is checked out.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html
var templates embed.FS

//go:embed static/*
var static embed.FS

// Templates returns the template files rooted at the templates directory,
// so "base.html" opens templates/base.html.
func Templates() fs.FS {
	return mustSub(templates, "templates")
}

// Static returns the static assets rooted at the static directory.
func Static() fs.FS {
	return mustSub(static, "static")
}

// fs.Sub only fails for an invalid path, and both paths are constants.
func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
