package receipt

import (
	"embed"
	"html/template"
)

//go:embed static/index.html
var staticFS embed.FS

//go:embed static/app.css
var appCSS []byte

//go:embed static/app.js
var appJS []byte

var indexTemplate = template.Must(template.ParseFS(staticFS, "static/index.html"))
