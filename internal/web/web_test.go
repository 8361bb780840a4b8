package web

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exit-kiosk/internal/dto"
	"github.com/noah-isme/exit-kiosk/internal/kiosk"
)

func TestTemplatesParse(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)
	for _, name := range []string{RosterPage, HistoryPage, LoginPage, "roster-cards", "card"} {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}
}

func TestRosterFragmentEscapesStudentText(t *testing.T) {
	tmpl := MustTemplates()
	html, err := RosterFragment(tmpl, dto.RosterView{
		Cards: []dto.StudentCard{{ID: "7", Name: "<b>Ana</b>", Group: "1ºA", DNI: "N/A", PhotoURL: "/static/avatar.svg"}},
		Total: 1,
	})
	require.NoError(t, err)
	assert.Contains(t, html, "&lt;b&gt;Ana&lt;/b&gt;")
	assert.NotContains(t, html, "<b>Ana</b>")
	assert.Contains(t, html, "Sin teléfonos")
}

func TestRosterFragmentStates(t *testing.T) {
	tmpl := MustTemplates()

	html, err := RosterFragment(tmpl, dto.RosterView{NoResults: true, Query: "zz"})
	require.NoError(t, err)
	assert.Contains(t, html, "No se encontraron alumnos")

	html, err = RosterFragment(tmpl, dto.RosterView{Error: "Error al cargar los datos."})
	require.NoError(t, err)
	assert.Contains(t, html, "Error al cargar los datos.")
}

func TestRosterPageRendersToasts(t *testing.T) {
	tmpl := MustTemplates()
	var buf bytes.Buffer
	err := tmpl.ExecuteTemplate(&buf, RosterPage, Page{
		Title:      "Registro de salidas",
		Toasts:     []kiosk.Toast{{Kind: kiosk.ToastSuccess, Message: "Salida registrada correctamente"}},
		Categories: []string{"all"},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "toast-success")
	assert.Contains(t, buf.String(), "Salida registrada correctamente")
}

func TestStatsLine(t *testing.T) {
	assert.Equal(t, "Mostrando 2 de 10 alumnos", StatsLine(dto.RosterView{Filtered: 2, Total: 10}))
}
