// Package web holds the HTML templates, embedded into the binary.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"

	html "github.com/gofiber/template/html/v2"
)

//go:embed templates
var files embed.FS

// Engine returns a template engine over the embedded templates. Template
// names are paths below templates/ without the extension, e.g. "layouts/main".
func Engine() *html.Engine {
	sub, err := fs.Sub(files, "templates")
	if err != nil {
		panic(err)
	}
	e := html.NewFileSystem(http.FS(sub), ".html")
	e.AddFunc("when", when)
	return e
}

// when shortens a stored timestamp to "2006-01-02 15:04".
func when(ts string) string {
	if len(ts) < 16 {
		return ts
	}
	return strings.Replace(ts[:16], "T", " ", 1)
}
