package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lzjever/escn/internal/core"
	"github.com/lzjever/escn/internal/observability"
)

const maxResponseBytes = 8 << 20

// Generator mints the ESCN of a new card.
type Generator interface {
	Generate(prefix, pic string) (string, error)
}

// Client talks to the European Student Card registry. Requests are sent
// once: there is no retry and redirects are not followed.
type Client struct {
	cfg  Config
	gen  Generator
	http *http.Client
	log  *zap.Logger
}

type Option func(*Client)

// WithHTTPClient sets the transport settings to use. The client is copied
// and redirects are still not followed.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func New(cfg Config, gen Generator, log *zap.Logger, opts ...Option) *Client {
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.ExpiryDate == "" {
		cfg.ExpiryDate = core.DefaultExpiryDate
	}
	c := &Client{
		cfg:  cfg,
		gen:  gen,
		http: &http.Client{},
		log:  log.Named("registry"),
	}
	for _, opt := range opts {
		opt(c)
	}
	hc := *c.http
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	c.http = &hc
	return c
}

type studentRequest struct {
	PICInstitutionCode        string `json:"picInstitutionCode"`
	EuropeanStudentIdentifier string `json:"europeanStudentIdentifier"`
	EmailAddress              string `json:"emailAddress"`
	ExpiryDate                string `json:"expiryDate"`
	Name                      string `json:"name"`
}

type cardRequest struct {
	EuropeanStudentCardNumber string `json:"europeanStudentCardNumber"`
	CardType                  string `json:"cardType"`
}

type cardRecord struct {
	Student struct {
		EuropeanStudentIdentifier string `json:"europeanStudentIdentifier"`
	} `json:"student"`
	EuropeanStudentCardNumber string `json:"europeanStudentCardNumber"`
	CardType                  string `json:"cardType"`
}

// StudentExists reports whether the registry knows the student. A response
// carrying a non-empty "error" field means the student does not exist.
func (c *Client) StudentExists(ctx context.Context, studentID string) (bool, error) {
	status, body, err := c.call(ctx, "student_exists", http.MethodGet, "students/"+url.PathEscape(studentID), nil)
	if err != nil {
		return false, err
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return false, malformed("student_exists", err)
	}
	if obj, ok := doc.(map[string]interface{}); ok && !isEmpty(obj["error"]) {
		return false, nil
	}
	if !isSuccess(status) {
		return false, unexpectedStatus("student_exists", status, body)
	}
	return true, nil
}

// StudentCardNumber looks up the card number of a student by scanning the
// registry's card list. The bool is false when no card matches.
func (c *Client) StudentCardNumber(ctx context.Context, studentID string) (core.Card, bool, error) {
	status, body, err := c.call(ctx, "card_lookup", http.MethodGet, "cards", nil)
	if err != nil {
		return core.Card{}, false, err
	}
	if !isSuccess(status) {
		return core.Card{}, false, unexpectedStatus("card_lookup", status, body)
	}

	var records []cardRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return core.Card{}, false, malformed("card_lookup", err)
	}
	for _, rec := range records {
		if rec.Student.EuropeanStudentIdentifier == studentID {
			return core.Card{
				ESCN:      rec.EuropeanStudentCardNumber,
				StudentID: studentID,
				CardType:  rec.CardType,
			}, true, nil
		}
	}
	return core.Card{}, false, nil
}

// CreateStudent registers a student. Empty PIC and expiry date are taken
// from the configuration.
func (c *Client) CreateStudent(ctx context.Context, s core.Student) error {
	if s.PIC == "" {
		s.PIC = c.cfg.PIC
	}
	if s.ExpiryDate == "" {
		s.ExpiryDate = c.cfg.ExpiryDate
	}
	req := studentRequest{
		PICInstitutionCode:        s.PIC,
		EuropeanStudentIdentifier: s.StudentID,
		EmailAddress:              s.Email,
		ExpiryDate:                s.ExpiryDate,
		Name:                      s.Name,
	}

	status, body, err := c.call(ctx, "create_student", http.MethodPost, "students/", req)
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return unexpectedStatus("create_student", status, body)
	}
	return nil
}

// CreateStudentCard mints a fresh ESCN with the configured prefix and PIC
// and registers it as the student's card.
func (c *Client) CreateStudentCard(ctx context.Context, studentID string) (string, error) {
	escn, err := c.gen.Generate(c.cfg.Prefix, c.cfg.PIC)
	if err != nil {
		return "", err
	}
	if err := c.RegisterCard(ctx, studentID, escn, ""); err != nil {
		return "", err
	}
	return escn, nil
}

// RegisterCard registers an already minted ESCN. An empty cardType means
// the configured one.
func (c *Client) RegisterCard(ctx context.Context, studentID, escn, cardType string) error {
	if cardType == "" {
		cardType = c.cfg.CardType
	}
	req := cardRequest{
		EuropeanStudentCardNumber: escn,
		CardType:                  cardType,
	}
	path := "students/" + url.PathEscape(studentID) + "/cards"

	status, body, err := c.call(ctx, "create_card", http.MethodPost, path, req)
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return unexpectedStatus("create_card", status, body)
	}
	return nil
}

// call sends one request and returns the status and body.
func (c *Client) call(ctx context.Context, op, method, path string, payload interface{}) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, core.WrapAppError(core.ErrInternal, op+": encode request", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return 0, nil, core.WrapAppError(core.ErrRegistryRequestFailed, op+": build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Key", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	observability.RegistryRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.RegistryRequestsTotal.WithLabelValues(op, "error").Inc()
		c.log.Warn("registry request failed", zap.String("op", op), zap.Error(err))
		return 0, nil, core.WrapAppError(core.ErrRegistryRequestFailed, op+": request failed", err)
	}
	defer resp.Body.Close()

	observability.RegistryRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, core.WrapAppError(core.ErrRegistryRequestFailed, op+": read response", err)
	}
	c.log.Debug("registry response",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return resp.StatusCode, body, nil
}

func isSuccess(status int) bool { return status >= 200 && status < 300 }

func malformed(op string, err error) error {
	return core.WrapAppError(core.ErrRegistryRequestFailed, op+": malformed response", err)
}

func unexpectedStatus(op string, status int, body []byte) error {
	msg := fmt.Sprintf("%s: registry returned %d", op, status)
	if detail := errorDetail(body); detail != "" {
		msg += ": " + detail
	}
	return core.NewAppError(core.ErrRegistryRequestFailed, msg)
}

// errorDetail pulls a human readable message out of a registry error body.
func errorDetail(body []byte) string {
	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return ""
	}
	switch v := doc["error"].(type) {
	case string:
		return v
	case map[string]interface{}:
		if m, ok := v["message"].(string); ok {
			return m
		}
	}
	if m, ok := doc["message"].(string); ok {
		return m
	}
	return ""
}

// isEmpty mirrors the registry's notion of an absent error: missing, null,
// false, zero, "", "0" or an empty collection.
func isEmpty(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case float64:
		return x == 0
	case string:
		return x == "" || x == "0"
	case []interface{}:
		return len(x) == 0
	case map[string]interface{}:
		return len(x) == 0
	}
	return false
}
