package dto

// RosterView is everything the roster page and the live search channel render.
type RosterView struct {
	Cards    []StudentCard `json:"cards"`
	Filtered int           `json:"filtered"`
	Total    int           `json:"total"`
	// StatsVisible is true when a filter narrowed the roster without emptying it.
	StatsVisible bool   `json:"statsVisible"`
	NoResults    bool   `json:"noResults"`
	Loading      bool   `json:"loading"`
	Error        string `json:"error,omitempty"`
	Query        string `json:"query"`
	Category     string `json:"category"`
}

// StudentCard is one roster card.
type StudentCard struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Group            string      `json:"group"`
	DNI              string      `json:"dni"`
	PhotoURL         string      `json:"photoUrl"`
	PhotoPlaceholder bool        `json:"photoPlaceholder"`
	Phones           []PhoneChip `json:"phones"`
	Tutors           []TutorBox  `json:"tutors"`
}

// PhoneChip is a dialable contact number.
type PhoneChip struct {
	Label   string `json:"label"`
	Number  string `json:"number"`
	DialURL string `json:"dialUrl"`
	Urgent  bool   `json:"urgent"`
}

// TutorBox shows a tutor on the card.
type TutorBox struct {
	Name string `json:"name"`
	DNI  string `json:"dni"`
}

// Badge is the exit counter shown on a card.
type Badge struct {
	StudentID    string `json:"studentId"`
	Count        int    `json:"count"`
	MonthlyCount int    `json:"monthlyCount"`
	HasExits     bool   `json:"hasExits"`
	Recurrent    bool   `json:"recurrent"`
}

// UploadPreview describes a staged roster file awaiting confirmation.
type UploadPreview struct {
	Filename  string `json:"filename"`
	Rows      int    `json:"rows"`
	RowsKnown bool   `json:"rowsKnown"`
	Prompt    string `json:"prompt"`
}
