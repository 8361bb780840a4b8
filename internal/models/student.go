package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Display defaults for roster fields the backend left empty.
const (
	DefaultStudentName  = "Sin Nombre"
	DefaultStudentGroup = "Sin Grupo"
	DefaultStudentDNI   = "---"
	DefaultTutorDNI     = "No DNI"
	PhotoPlaceholder    = "/data/logo.gif"
)

// StudentID is the opaque roster identifier. Rosters converted from spreadsheets carry
// numeric ids, so both JSON strings and numbers are accepted.
type StudentID string

// UnmarshalJSON accepts a JSON string, number or null.
func (id *StudentID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StudentID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("student id must be a string or number: %w", err)
	}
	*id = StudentID(n.String())
	return nil
}

// String returns the id as text.
func (id StudentID) String() string { return string(id) }

// Student is one roster entry as served by the backend.
type Student struct {
	ID     StudentID `json:"id"`
	Name   string    `json:"name"`
	Group  string    `json:"group"`
	DNI    string    `json:"dni"`
	Photo  string    `json:"photo,omitempty"`
	Tutor1 *Tutor    `json:"tutor1,omitempty"`
	Tutor2 *Tutor    `json:"tutor2,omitempty"`
	Phones []Phone   `json:"phones,omitempty"`
}

// Tutor is a guardian allowed to pick the student up.
type Tutor struct {
	Name string `json:"name"`
	DNI  string `json:"dni"`
}

// Phone is a contact number; urgent entries are highlighted on the card.
type Phone struct {
	Label  string `json:"label"`
	Number string `json:"number"`
	Urgent bool   `json:"urgent"`
}

// DisplayName returns the name or the roster default.
func (s Student) DisplayName() string { return orDefault(s.Name, DefaultStudentName) }

// DisplayGroup returns the group or the roster default.
func (s Student) DisplayGroup() string { return orDefault(s.Group, DefaultStudentGroup) }

// DisplayDNI returns the DNI or the roster default.
func (s Student) DisplayDNI() string { return orDefault(s.DNI, DefaultStudentDNI) }

// SearchText is the lower-cased text a roster query is matched against.
func (s Student) SearchText() string {
	return strings.ToLower(s.Name + " " + s.Group + " " + s.DNI)
}

// PhotoURL resolves the photo reference and reports whether the placeholder was used.
func (s Student) PhotoURL() (string, bool) {
	photo := strings.TrimSpace(s.Photo)
	switch {
	case photo == "":
		return PhotoPlaceholder, true
	case strings.HasPrefix(photo, "http://"), strings.HasPrefix(photo, "https://"), strings.HasPrefix(photo, "/"):
		return photo, false
	default:
		return "/" + photo, false
	}
}

// Tutors returns the present tutors in slot order.
func (s Student) Tutors() []Tutor {
	tutors := make([]Tutor, 0, 2)
	for _, t := range []*Tutor{s.Tutor1, s.Tutor2} {
		if t != nil && strings.TrimSpace(t.Name) != "" {
			tutors = append(tutors, *t)
		}
	}
	return tutors
}

// DisplayDNI returns the tutor DNI or its default.
func (t Tutor) DisplayDNI() string { return orDefault(t.DNI, DefaultTutorDNI) }

// DialURL is the tel: link for the number with spaces removed.
func (p Phone) DialURL() string {
	return "tel:" + strings.ReplaceAll(p.Number, " ", "")
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
