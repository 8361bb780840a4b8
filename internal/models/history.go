package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// History column names as served by GET /api/history.
const (
	ColFecha              = "Fecha"
	ColHora               = "Hora"
	ColStudentID          = "ID Alumno"
	ColNombre             = "Nombre"
	ColGrupo              = "Grupo"
	ColDNI                = "DNI Alumno"
	ColMotivo             = "Motivo"
	ColAcompanante        = "Acompañante"
	ColDetalleAcompanante = "Detalle Acompañante"
	ColPDF                = "PDF"
	ColVuelve             = "Vuelve"
	ColHoras              = "Horas"
	ColTicketID           = "TicketID"
	ColHaVuelto           = "HaVuelto"
)

// HistoryColumns is the backend column order, used when a row was built without one.
var HistoryColumns = []string{
	ColFecha, ColHora, ColStudentID, ColNombre, ColGrupo, ColDNI, ColMotivo,
	ColAcompanante, ColDetalleAcompanante, ColPDF, ColVuelve, ColHoras, ColTicketID, ColHaVuelto,
}

// VuelveYes is the Vuelve value of a row whose student returns later the same day.
const VuelveYes = "Sí"

// HistoryField is a column the kiosk does not interpret, kept for export.
type HistoryField struct {
	Key   string
	Value string
}

// HistoryRow is one persisted exit as listed by the history log. Values are kept as text
// exactly as received; the key order of the payload is preserved.
type HistoryRow struct {
	Fecha              string
	Hora               string
	StudentID          string
	Nombre             string
	Grupo              string
	DNI                string
	Motivo             string
	Acompanante        string
	DetalleAcompanante string
	PDF                string
	Vuelve             string
	Horas              string
	TicketID           string
	HaVuelto           string
	Extra              []HistoryField

	keys []string
}

// Deletable reports whether the row has a receipt file to key the delete request on.
func (r HistoryRow) Deletable() bool { return r.PDF != "" }

// Returns reports whether the student was expected back.
func (r HistoryRow) Returns() bool { return r.Vuelve == VuelveYes }

// Keys returns the column names of the row in payload order.
func (r HistoryRow) Keys() []string {
	if len(r.keys) > 0 {
		return append([]string(nil), r.keys...)
	}
	keys := append([]string(nil), HistoryColumns...)
	for _, f := range r.Extra {
		keys = append(keys, f.Key)
	}
	return keys
}

// Get returns the value stored under a column name.
func (r HistoryRow) Get(key string) (string, bool) {
	if p := r.field(key); p != nil {
		return *p, true
	}
	for _, f := range r.Extra {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Set stores value under key, recording the key if it is new.
func (r *HistoryRow) Set(key, value string) {
	known := false
	for _, k := range r.keys {
		if k == key {
			known = true
			break
		}
	}
	if !known {
		r.keys = append(r.keys, key)
	}
	if p := r.field(key); p != nil {
		*p = value
		return
	}
	for i := range r.Extra {
		if r.Extra[i].Key == key {
			r.Extra[i].Value = value
			return
		}
	}
	r.Extra = append(r.Extra, HistoryField{Key: key, Value: value})
}

// Values returns every column of the row keyed by name.
func (r HistoryRow) Values() map[string]string {
	keys := r.Keys()
	values := make(map[string]string, len(keys))
	for _, k := range keys {
		values[k], _ = r.Get(k)
	}
	return values
}

func (r *HistoryRow) field(key string) *string {
	switch key {
	case ColFecha:
		return &r.Fecha
	case ColHora:
		return &r.Hora
	case ColStudentID:
		return &r.StudentID
	case ColNombre:
		return &r.Nombre
	case ColGrupo:
		return &r.Grupo
	case ColDNI:
		return &r.DNI
	case ColMotivo:
		return &r.Motivo
	case ColAcompanante:
		return &r.Acompanante
	case ColDetalleAcompanante:
		return &r.DetalleAcompanante
	case ColPDF:
		return &r.PDF
	case ColVuelve:
		return &r.Vuelve
	case ColHoras:
		return &r.Horas
	case ColTicketID:
		return &r.TicketID
	case ColHaVuelto:
		return &r.HaVuelto
	}
	return nil
}

// UnmarshalJSON decodes a JSON object, coercing scalar values to text.
func (r *HistoryRow) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("history row must be a JSON object")
	}

	*r = HistoryRow{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("history row: unexpected key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("history row %q: %w", key, err)
		}
		r.Set(key, coerce(raw))
	}
	_, err = dec.Token()
	return err
}

// MarshalJSON encodes the row as a JSON object in key order.
func (r HistoryRow) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, key := range r.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		value, _ := r.Get(key)
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func coerce(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	switch {
	case trimmed == "null" || trimmed == "":
		return ""
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return trimmed
}
