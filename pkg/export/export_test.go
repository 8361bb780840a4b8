package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterQuotesOnlyWhenNeeded(t *testing.T) {
	data := Dataset{
		Headers: []string{"Nombre", "Motivo"},
		Rows: []map[string]string{
			{"Nombre": `Ruiz, "Ana"`, "Motivo": "Médico"},
			{"Nombre": "Luis"},
		},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Equal(t, "Nombre,Motivo\n\"Ruiz, \"\"Ana\"\"\",Médico\nLuis,\n", string(out))

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{`Ruiz, "Ana"`, "Médico"}, records[1])
	assert.Equal(t, []string{"Luis", ""}, records[2])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRendersTable(t *testing.T) {
	data := Dataset{
		Headers: []string{"Fecha", "Nombre", "Grupo"},
		Rows:    []map[string]string{{"Fecha": "2024-05-14", "Nombre": "Ana Ruiz Muñoz", "Grupo": "3ºA"}},
	}
	out, err := NewPDFExporter().Landscape().Render(data, "Historial de salidas")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestReceiptExporterRendersLines(t *testing.T) {
	out, err := NewReceiptExporter().Render(Receipt{
		Title:  "PARTE DE SALIDA",
		Lines:  []ReceiptLine{{Label: "Alumno", Value: "Ana Ruiz"}, {Label: "Regreso", Value: "SÍ - Horas: 3ª"}},
		Footer: "Firma del responsable",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewReceiptExporter().Render(Receipt{Title: "vacío"})
	assert.Error(t, err)
}
