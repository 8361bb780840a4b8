package handler

import (
	"context"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/exit-kiosk/internal/dto"
	"github.com/noah-isme/exit-kiosk/internal/kiosk"
	"github.com/noah-isme/exit-kiosk/internal/service"
	"github.com/noah-isme/exit-kiosk/internal/web"
	"github.com/noah-isme/exit-kiosk/pkg/debounce"
	appErrors "github.com/noah-isme/exit-kiosk/pkg/errors"
	"github.com/noah-isme/exit-kiosk/pkg/response"
)

// Live search message types sent by the browser.
const (
	MessageQuery    = "query"
	MessageCategory = "category"
)

const (
	writeWait     = 10 * time.Second
	maxMessageLen = 4096
	pushBuffer    = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     sameOrigin,
}

type searchDriver interface {
	EnsureLoaded(ctx context.Context, k *kiosk.Kiosk) error
	Search(k *kiosk.Kiosk, query string) dto.RosterView
	SetCategory(k *kiosk.Kiosk, category string) dto.RosterView
	Publish(k *kiosk.Kiosk) dto.RosterView
	EnrichCards(k *kiosk.Kiosk, view dto.RosterView)
}

// SearchMessage is what the browser sends over the live channel.
type SearchMessage struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// PushMessage is what the kiosk sends back.
type PushMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// RosterPayload carries a re-rendered card grid.
type RosterPayload struct {
	HTML         string `json:"html"`
	Stats        string `json:"stats"`
	StatsVisible bool   `json:"statsVisible"`
	Filtered     int    `json:"filtered"`
	Total        int    `json:"total"`
	Query        string `json:"query"`
	Category     string `json:"category"`
}

// SearchHandler runs the live search channel of the roster page.
type SearchHandler struct {
	roster   searchDriver
	tmpl     *template.Template
	debounce time.Duration
	logger   *zap.Logger
}

// NewSearchHandler constructs the websocket handler.
func NewSearchHandler(roster searchDriver, tmpl *template.Template, debounceDelay time.Duration, logger *zap.Logger) *SearchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounceDelay <= 0 {
		debounceDelay = 300 * time.Millisecond
	}
	return &SearchHandler{roster: roster, tmpl: tmpl, debounce: debounceDelay, logger: logger}
}

// Live upgrades the request and serves search messages until the browser goes away.
// Query messages are debounced; category changes apply at once with the last typed query.
func (h *SearchHandler) Live(c *gin.Context) {
	k, ok := kioskFromContext(c)
	if !ok {
		return
	}
	if err := h.roster.EnsureLoaded(c.Request.Context(), k); err != nil {
		response.Error(c, appErrors.ErrSignInRequired)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("kiosk_id", k.ID), zap.Error(err))
		return
	}
	defer conn.Close()

	pushes, cancel := k.Subscribe(pushBuffer)
	writerDone := make(chan struct{})
	go h.write(conn, k.ID, pushes, writerDone)
	defer func() {
		cancel()
		<-writerDone
	}()

	h.roster.Publish(k)

	deb := debounce.New(h.debounce)
	defer deb.Cancel()

	typed := currentQuery(k)
	conn.SetReadLimit(maxMessageLen)
	for {
		var msg SearchMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("live search closed", zap.String("kiosk_id", k.ID), zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case MessageQuery:
			typed = msg.Value
			query := msg.Value
			deb.Trigger(func() {
				h.push(k, h.roster.Search(k, query))
			})
		case MessageCategory:
			category, query := msg.Value, typed
			deb.Now(func() {
				h.roster.Search(k, query)
				h.push(k, h.roster.SetCategory(k, category))
			})
		}
	}
}

func (h *SearchHandler) push(k *kiosk.Kiosk, view dto.RosterView) {
	k.Publish(kiosk.Push{Type: service.PushRoster, Payload: view})
	h.roster.EnrichCards(k, view)
}

// write is the only goroutine writing to conn.
func (h *SearchHandler) write(conn *websocket.Conn, kioskID string, pushes <-chan kiosk.Push, done chan<- struct{}) {
	defer close(done)
	for p := range pushes {
		msg, err := h.message(p)
		if err != nil {
			h.logger.Error("render live push", zap.String("kiosk_id", kioskID), zap.Error(err))
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Debug("live push failed", zap.String("kiosk_id", kioskID), zap.Error(err))
			return
		}
	}
}

func (h *SearchHandler) message(p kiosk.Push) (PushMessage, error) {
	view, ok := p.Payload.(dto.RosterView)
	if !ok {
		return PushMessage{Type: p.Type, Payload: p.Payload}, nil
	}
	html, err := web.RosterFragment(h.tmpl, view)
	if err != nil {
		return PushMessage{}, err
	}
	return PushMessage{Type: p.Type, Payload: RosterPayload{
		HTML:         html,
		Stats:        web.StatsLine(view),
		StatsVisible: view.StatsVisible,
		Filtered:     view.Filtered,
		Total:        view.Total,
		Query:        view.Query,
		Category:     view.Category,
	}}, nil
}

func currentQuery(k *kiosk.Kiosk) string {
	var q string
	_ = k.Do(func(st *kiosk.State) error {
		q = st.Roster.Query
		return nil
	})
	return q
}

// sameOrigin accepts requests without an Origin header and those from this host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}
