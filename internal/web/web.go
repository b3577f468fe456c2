// Package web embeds the browser page of the now-playing service.
//
// The page is static: it polls GET /data once a second and posts {"action": ...} to /control.
package web

import (
	"bytes"
	"embed"
	"net/http"
	"time"
)

//go:embed static/index.html
var static embed.FS

// started stamps the page's Last-Modified header.
var started = time.Now()

// Page returns the page's HTML.
func Page() []byte {
	data, err := static.ReadFile("static/index.html")
	if err != nil {
		panic("web: embedded page missing: " + err.Error())
	}
	return data
}

// Handler serves the page.
func Handler() http.Handler {
	page := Page()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeContent(w, r, "index.html", started, bytes.NewReader(page))
	})
}
