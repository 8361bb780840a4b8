// Package web holds the kiosk pages. Everything goes through html/template, so roster and
// history text is always escaped.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strconv"
	"strings"

	"github.com/noah-isme/exit-kiosk/internal/dto"
	"github.com/noah-isme/exit-kiosk/internal/kiosk"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page names.
const (
	RosterPage  = "roster.html"
	HistoryPage = "history.html"
	LoginPage   = "login.html"
)

// Page is the data every kiosk page renders from.
type Page struct {
	Title      string
	Toasts     []kiosk.Toast
	Roster     dto.RosterView
	Categories []string
	DebounceMS int64
	Exit       dto.ExitView
	Upload     *dto.UploadPreview
	History    dto.HistoryView
	LoginError string
	Next       string
}

// Templates parses the embedded pages.
func Templates() (*template.Template, error) {
	return template.New("kiosk").Funcs(Funcs()).ParseFS(templateFS, "templates/*.html")
}

// MustTemplates is Templates that panics on a parse error.
func MustTemplates() *template.Template {
	return template.Must(Templates())
}

// RosterFragment renders the card grid alone, for live search pushes.
func RosterFragment(tmpl *template.Template, view dto.RosterView) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "roster-cards", view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// StatsLine is the "showing X of Y" caption.
func StatsLine(view dto.RosterView) string {
	return fmt.Sprintf("Mostrando %d de %d alumnos", view.Filtered, view.Total)
}

// Static is the embedded asset tree served under /static.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Funcs are the helpers available to the templates.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"join": strings.Join,
		// str flattens named string types (motives, companions) for comparisons.
		"str": func(v interface{}) string { return fmt.Sprint(v) },
		"pct": func(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) },
	}
}
