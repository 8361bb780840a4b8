package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/noah-isme/exit-kiosk/internal/models"
	appErrors "github.com/noah-isme/exit-kiosk/pkg/errors"
)

const maxReceiptBytes = 20 << 20

// Session is the authenticated context of one kiosk: the backend session cookie lives in
// its jar and the anti-forgery token is cached here. The token is fetched when absent and
// replaced wholesale on every fetch; it is never versioned or invalidated otherwise.
type Session struct {
	client *Client
	http   *http.Client

	mu    sync.Mutex
	token string
}

// NewSession starts an unauthenticated session with an empty cookie jar.
func (c *Client) NewSession() *Session {
	jar, _ := cookiejar.New(nil)
	return &Session{client: c, http: c.newHTTPClient(jar)}
}

// Token returns the cached anti-forgery token, possibly empty.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// RefreshToken fetches a new anti-forgery token and overwrites the cached one.
func (s *Session) RefreshToken(ctx context.Context) (string, error) {
	var payload struct {
		Token string `json:"csrf_token"`
	}
	if err := s.client.getJSON(ctx, s, PathCSRFToken, "csrf_token", &payload); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.token = payload.Token
	s.mu.Unlock()
	return payload.Token, nil
}

// EnsureToken returns the cached token, fetching it once if absent.
func (s *Session) EnsureToken(ctx context.Context) (string, error) {
	if token := s.Token(); token != "" {
		return token, nil
	}
	return s.RefreshToken(ctx)
}

// Roster fetches the full student roster.
func (s *Session) Roster(ctx context.Context) ([]models.Student, error) {
	var roster []models.Student
	if err := s.client.getJSON(ctx, s, PathRoster, "roster", &roster); err != nil {
		return nil, err
	}
	return roster, nil
}

// ExitStats fetches the exit counters of one student.
func (s *Session) ExitStats(ctx context.Context, id models.StudentID) (models.ExitStats, error) {
	var stats models.ExitStats
	path := PathStudentHistory + "?id=" + url.QueryEscape(id.String())
	if err := s.client.getJSON(ctx, s, path, "student_history", &stats); err != nil {
		return models.ExitStats{}, err
	}
	return stats, nil
}

// SubmitExit posts an exit record. Only the status matters; the body is ignored.
func (s *Session) SubmitExit(ctx context.Context, record models.ExitRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode exit record: %w", err)
	}
	resp, err := s.client.do(ctx, s, request{
		method:    http.MethodPost,
		path:      PathExit,
		endpoint:  "exit",
		body:      bytes.NewReader(body),
		header:    http.Header{"Content-Type": {"application/json"}},
		withToken: true,
	})
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// History fetches every persisted exit.
func (s *Session) History(ctx context.Context) ([]models.HistoryRow, error) {
	var rows []models.HistoryRow
	if err := s.client.getJSON(ctx, s, PathHistory, "history", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteHistory deletes the record whose receipt file is pdf.
func (s *Session) DeleteHistory(ctx context.Context, pdf string) error {
	if pdf == "" {
		return appErrors.ErrNotDeletable
	}
	resp, err := s.client.do(ctx, s, request{
		method:    http.MethodDelete,
		path:      PathHistory + "/" + url.PathEscape(pdf),
		endpoint:  "history_delete",
		withToken: true,
	})
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// ReceiptFile downloads the official receipt PDF of a history record.
func (s *Session) ReceiptFile(ctx context.Context, pdf string) ([]byte, error) {
	if pdf == "" {
		return nil, appErrors.ErrNotFound
	}
	resp, err := s.client.do(ctx, s, request{
		method:   http.MethodGet,
		path:     PathReceipts + url.PathEscape(pdf),
		endpoint: "receipt_pdf",
		header:   http.Header{"Accept": {"application/pdf"}},
	})
	if err != nil {
		return nil, err
	}
	defer drain(resp)
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReceiptBytes))
	if err != nil {
		return nil, unavailable(fmt.Errorf("read receipt %s: %w", pdf, err))
	}
	return data, nil
}

// UploadRoster replaces the roster with a spreadsheet and returns the imported count.
func (s *Session) UploadRoster(ctx context.Context, filename string, file io.Reader) (int, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		return 0, fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(fw, file); err != nil {
		return 0, fmt.Errorf("copy upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("close upload: %w", err)
	}

	resp, err := s.client.do(ctx, s, request{
		method:    http.MethodPost,
		path:      PathUpload,
		endpoint:  "upload_students",
		body:      &buf,
		header:    http.Header{"Content-Type": {w.FormDataContentType()}},
		withToken: true,
	})
	if err != nil {
		return 0, err
	}
	defer drain(resp)

	var result models.UploadResult
	if err := decode(resp, &result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

// Login forwards the staff password. A wrong password is reported as a rejection,
// not as a sign-in challenge.
func (s *Session) Login(ctx context.Context, password string) error {
	body, err := json.Marshal(map[string]string{"password": password})
	if err != nil {
		return fmt.Errorf("encode login: %w", err)
	}
	resp, err := s.client.do(ctx, s, request{
		method:   http.MethodPost,
		path:     PathLogin,
		endpoint: "login",
		body:     bytes.NewReader(body),
		header:   http.Header{"Content-Type": {"application/json"}},
	})
	if err != nil {
		if IsSignInRequired(err) {
			return &RejectedError{Status: http.StatusUnauthorized, Message: "Contraseña incorrecta"}
		}
		return err
	}
	drain(resp)

	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}

// Logout ends the backend session. The local token is dropped whatever the outcome.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.client.do(ctx, s, request{
		method:    http.MethodPost,
		path:      PathLogout,
		endpoint:  "logout",
		withToken: true,
	})
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}
