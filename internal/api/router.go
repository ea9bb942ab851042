package api

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/lzjever/escn/internal/api/middleware"
	"github.com/lzjever/escn/internal/core"
	"github.com/lzjever/escn/internal/store"
)

// Generator mints ESCNs, either in process or through escn-generator.
type Generator interface {
	Generate(ctx context.Context, prefix, pic string) (string, error)
}

// Registry is the part of the registry client the API calls.
type Registry interface {
	StudentExists(ctx context.Context, studentID string) (bool, error)
	StudentCardNumber(ctx context.Context, studentID string) (core.Card, bool, error)
	CreateStudent(ctx context.Context, s core.Student) error
	RegisterCard(ctx context.Context, studentID, escn, cardType string) error
}

// Ledger records the cards issued through the API.
type Ledger interface {
	InsertIssuedCard(ctx context.Context, c core.IssuedCard) (core.IssuedCard, error)
	GetIssuedCardByIdempotencyKey(ctx context.Context, studentID, key string) (core.IssuedCard, error)
	GetIssuedCard(ctx context.Context, escn string) (core.IssuedCard, error)
	ListIssuedCards(ctx context.Context, arg store.ListIssuedCardsParams) ([]core.IssuedCard, error)
}

// Locker serializes card issuance for one student and idempotency key.
// The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, studentID, key string) (func(), error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Issuer holds the institution values stamped on the ESCNs the API mints.
type Issuer struct {
	Prefix   string
	PIC      string
	CardType string
}

type Deps struct {
	Generator Generator
	Registry  Registry
	Ledger    Ledger
	Locks     Locker
	DB        Pinger
	Issuer    Issuer
}

type API struct {
	cfg      Config
	gen      Generator
	registry Registry
	ledger   Ledger
	locks    Locker
	db       Pinger
	issuer   Issuer
	log      *zap.Logger
}

func NewAPI(cfg Config, deps Deps, log *zap.Logger) *API {
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = 1000
	}
	locks := deps.Locks
	if locks == nil {
		locks = noLocks{}
	}
	return &API{
		cfg:      cfg,
		gen:      deps.Generator,
		registry: deps.Registry,
		ledger:   deps.Ledger,
		locks:    locks,
		db:       deps.DB,
		issuer:   deps.Issuer,
		log:      log,
	}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)
	r.Use(middleware.Recoverer(a.log))
	r.Use(middleware.Logger(a.log))
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Health endpoints
	r.Get("/healthz", a.HealthHandler)
	r.Get("/readyz", a.ReadyHandler)

	r.Route("/v1", func(r chi.Router) {
		// ESCNs
		r.Post("/escns", a.GenerateESCNs)
		r.Get("/escns/{escn}", a.DecodeESCN)

		// Students (registry)
		r.Post("/students", a.CreateStudent)
		r.Get("/students/{student_id}", a.GetStudent)
		r.Get("/students/{student_id}/card", a.GetStudentCard)

		// Cards (ledger + registry)
		r.Get("/students/{student_id}/cards", a.ListCards)
		r.Post("/students/{student_id}/cards", a.IssueCard)
	})

	return r
}

// local adapts an in-process generator to Generator.
type local struct {
	gen *core.Generator
}

// Local wraps an in-process generator.
func Local(gen *core.Generator) Generator {
	return local{gen: gen}
}

func (l local) Generate(_ context.Context, prefix, pic string) (string, error) {
	return l.gen.Generate(prefix, pic)
}

// noLocks is used when no Locker is configured. Concurrent retries of one
// key may then register two cards; the ledger keeps only one.
type noLocks struct{}

func (noLocks) Lock(context.Context, string, string) (func(), error) {
	return func() {}, nil
}

// encodeCursor encodes the sort key of the last row of a page as a
// URL-safe base64 cursor.
func encodeCursor(t time.Time, escn string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(t.Format(time.RFC3339Nano) + " " + escn))
}

// decodeCursor decodes a cursor to its timestamp and ESCN. Cursors holding
// only a timestamp decode with an empty ESCN.
func decodeCursor(s string) (time.Time, string, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return time.Time{}, "", err
	}
	ts, escn, _ := strings.Cut(string(b), " ")
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, "", err
	}
	return t, escn, nil
}

func parseCursor(s string) (pgtype.Timestamptz, string) {
	if s == "" {
		return pgtype.Timestamptz{Valid: false}, ""
	}
	t, escn, err := decodeCursor(s)
	if err != nil {
		return pgtype.Timestamptz{Valid: false}, ""
	}
	return pgtype.Timestamptz{Time: t, Valid: true}, escn
}
