package service

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/exit-kiosk/internal/backend"
	"github.com/noah-isme/exit-kiosk/internal/dto"
	"github.com/noah-isme/exit-kiosk/internal/filter"
	"github.com/noah-isme/exit-kiosk/internal/kiosk"
	"github.com/noah-isme/exit-kiosk/internal/models"
	appErrors "github.com/noah-isme/exit-kiosk/pkg/errors"
)

// RosterLoadError is shown inline when the roster cannot be fetched.
const RosterLoadError = "Error al cargar los datos. Por favor, recarga la página."

// Push types sent to live roster subscribers.
const (
	PushRoster = "roster"
	PushBadge  = "badge"
)

type badgeEnricher interface {
	Enrich(ctx context.Context, session kiosk.Backend, ids []models.StudentID, sink func(dto.Badge))
}

// RosterService drives the roster view of a kiosk.
type RosterService struct {
	badges badgeEnricher
	logger *zap.Logger
}

// NewRosterService constructs the roster driver. badges may be nil.
func NewRosterService(badges badgeEnricher, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{badges: badges, logger: logger}
}

// EnsureLoaded fetches the roster the first time a kiosk needs it.
func (s *RosterService) EnsureLoaded(ctx context.Context, k *kiosk.Kiosk) error {
	loaded := false
	_ = k.Do(func(st *kiosk.State) error {
		loaded = st.Roster.Loaded || st.Roster.Loading
		return nil
	})
	if loaded {
		return nil
	}
	return s.Load(ctx, k)
}

// Load fetches the roster and replaces the collection. Only a sign-in failure is returned;
// other failures become the inline error state.
func (s *RosterService) Load(ctx context.Context, k *kiosk.Kiosk) error {
	var gen uint64
	_ = k.Do(func(st *kiosk.State) error {
		st.Roster.Gen++
		gen = st.Roster.Gen
		st.Roster.Loading = true
		st.Roster.Error = ""
		return nil
	})

	students, err := k.Session.Roster(ctx)

	_ = k.Do(func(st *kiosk.State) error {
		if st.Roster.Gen != gen {
			return nil
		}
		st.Roster.Loading = false
		if err != nil {
			if !backend.IsSignInRequired(err) {
				st.Roster.Error = RosterLoadError
			}
			return nil
		}
		st.Roster.Students = students
		st.Roster.Loaded = true
		return nil
	})

	if err != nil {
		if backend.IsSignInRequired(err) {
			return err
		}
		s.logger.Warn("roster load failed", zap.String("kiosk_id", k.ID), zap.Error(err))
		return nil
	}
	s.logger.Debug("roster loaded", zap.String("kiosk_id", k.ID), zap.Int("students", len(students)))
	return nil
}

// Search stores the query and returns the resulting view.
func (s *RosterService) Search(k *kiosk.Kiosk, query string) dto.RosterView {
	var view dto.RosterView
	_ = k.Do(func(st *kiosk.State) error {
		st.Roster.Query = query
		view = rosterView(st.Roster)
		return nil
	})
	return view
}

// SetCategory records the selected chip. Chips only change the highlighted category;
// the visible set is still driven by the query.
func (s *RosterService) SetCategory(k *kiosk.Kiosk, category string) dto.RosterView {
	if category == "" {
		category = filter.AllMotives
	}
	var view dto.RosterView
	_ = k.Do(func(st *kiosk.State) error {
		st.Roster.Category = category
		view = rosterView(st.Roster)
		return nil
	})
	return view
}

// View renders the current roster state.
func (s *RosterService) View(k *kiosk.Kiosk) dto.RosterView {
	var view dto.RosterView
	_ = k.Do(func(st *kiosk.State) error {
		view = rosterView(st.Roster)
		return nil
	})
	return view
}

// Categories lists the chips offered above the roster: "all" followed by every group,
// sorted.
func (s *RosterService) Categories(k *kiosk.Kiosk) []string {
	seen := make(map[string]struct{})
	groups := make([]string, 0)
	_ = k.Do(func(st *kiosk.State) error {
		for _, student := range st.Roster.Students {
			g := strings.TrimSpace(student.Group)
			if g == "" {
				continue
			}
			if _, ok := seen[g]; ok {
				continue
			}
			seen[g] = struct{}{}
			groups = append(groups, g)
		}
		return nil
	})
	sort.Strings(groups)
	return append([]string{filter.AllMotives}, groups...)
}

// Student resolves a roster entry against the kiosk's current snapshot.
func (s *RosterService) Student(k *kiosk.Kiosk, id string) (models.Student, error) {
	var (
		found models.Student
		ok    bool
	)
	_ = k.Do(func(st *kiosk.State) error {
		for _, candidate := range st.Roster.Students {
			if candidate.ID.String() == id {
				found, ok = candidate, true
				return nil
			}
		}
		return nil
	})
	if !ok || id == "" {
		return models.Student{}, appErrors.ErrNoStudentSelected
	}
	return found, nil
}

// Publish re-runs the current search for live subscribers and refreshes the badges of
// the visible cards.
func (s *RosterService) Publish(k *kiosk.Kiosk) dto.RosterView {
	view := s.View(k)
	k.Publish(kiosk.Push{Type: PushRoster, Payload: view})
	s.EnrichCards(k, view)
	return view
}

// EnrichCards schedules badge lookups for the rendered cards; results are pushed to
// subscribers as they arrive.
func (s *RosterService) EnrichCards(k *kiosk.Kiosk, view dto.RosterView) {
	if s.badges == nil || len(view.Cards) == 0 {
		return
	}
	ids := make([]models.StudentID, 0, len(view.Cards))
	for _, card := range view.Cards {
		ids = append(ids, models.StudentID(card.ID))
	}
	s.badges.Enrich(context.Background(), k.Session, ids, func(b dto.Badge) {
		k.Publish(kiosk.Push{Type: PushBadge, Payload: b})
	})
}

func rosterView(r kiosk.RosterState) dto.RosterView {
	filtered := filter.Roster(r.Students, r.Query)
	visible := filter.Visible(filtered, r.Query)

	cards := make([]dto.StudentCard, 0, len(visible))
	for _, st := range visible {
		cards = append(cards, StudentCard(st))
	}

	total := len(r.Students)
	return dto.RosterView{
		Cards:        cards,
		Filtered:     len(filtered),
		Total:        total,
		StatsVisible: len(filtered) > 0 && len(filtered) < total,
		NoResults:    len(filter.Terms(r.Query)) > 0 && len(filtered) == 0,
		Loading:      r.Loading,
		Error:        r.Error,
		Query:        r.Query,
		Category:     r.Category,
	}
}

// StudentCard builds the card model of one student.
func StudentCard(st models.Student) dto.StudentCard {
	photo, placeholder := st.PhotoURL()
	card := dto.StudentCard{
		ID:               st.ID.String(),
		Name:             st.DisplayName(),
		Group:            st.DisplayGroup(),
		DNI:              st.DisplayDNI(),
		PhotoURL:         photo,
		PhotoPlaceholder: placeholder,
		Phones:           make([]dto.PhoneChip, 0, len(st.Phones)),
	}
	for _, p := range st.Phones {
		card.Phones = append(card.Phones, dto.PhoneChip{
			Label:   p.Label,
			Number:  p.Number,
			DialURL: p.DialURL(),
			Urgent:  p.Urgent,
		})
	}
	for _, t := range st.Tutors() {
		card.Tutors = append(card.Tutors, dto.TutorBox{Name: t.Name, DNI: t.DisplayDNI()})
	}
	return card
}
