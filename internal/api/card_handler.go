package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lzjever/escn/internal/api/middleware"
	"github.com/lzjever/escn/internal/core"
	"github.com/lzjever/escn/internal/observability"
	"github.com/lzjever/escn/internal/store"
)

type IssueCardRequest struct {
	CardType string `json:"card_type,omitempty"`
}

type IssuedCardsResponse struct {
	Cards      []core.IssuedCard `json:"cards"`
	NextCursor string            `json:"next_cursor"`
}

// ListCards lists the cards issued to a student, newest first.
func (a *API) ListCards(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	studentID := chi.URLParam(r, "student_id")
	limit := parseLimit(r.URL.Query().Get("limit"), 20, 100)
	cursor, cursorESCN := parseCursor(r.URL.Query().Get("cursor"))

	cards, err := a.ledger.ListIssuedCards(ctx, store.ListIssuedCardsParams{
		StudentID:  studentID,
		Cursor:     cursor,
		CursorESCN: cursorESCN,
		Limit:      int32(limit),
	})
	if err != nil {
		a.log.Error("list issued cards failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to list cards"))
		return
	}
	if cards == nil {
		cards = []core.IssuedCard{}
	}

	var nextCursor string
	if len(cards) == limit {
		last := cards[len(cards)-1]
		nextCursor = encodeCursor(last.CreatedAt, last.ESCN)
	}

	WriteJSON(w, http.StatusOK, IssuedCardsResponse{Cards: cards, NextCursor: nextCursor})
}

// IssueCard mints an ESCN for the student, registers it and records it in
// the ledger. Retries with the same Idempotency-Key and body replay the
// stored card.
func (a *API) IssueCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	studentID := chi.URLParam(r, "student_id")
	log := observability.StudentLogger(a.log, studentID, "card.issue", middleware.GetRequestID(r))

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "Idempotency-Key header required"))
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		WriteError(w, bodyError(err))
		return
	}
	var req IssueCardRequest
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			WriteError(w, core.NewAppError(core.ErrBadRequest, "invalid request body"))
			return
		}
	}
	if req.CardType == "" {
		req.CardType = a.issuer.CardType
	}

	body, _ := json.Marshal(req)
	requestHash := core.RequestHash(body, http.MethodPost, "/v1/students/"+studentID+"/cards")

	// Held across lookup, mint, register and insert so concurrent retries
	// of one key reach the registry once.
	unlock, err := a.locks.Lock(ctx, studentID, idempotencyKey)
	if err != nil {
		log.Error("issue lock failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to issue card"))
		return
	}
	defer unlock()

	existing, err := a.ledger.GetIssuedCardByIdempotencyKey(ctx, studentID, idempotencyKey)
	switch {
	case err == nil:
		a.replay(w, existing, requestHash)
		return
	case !errors.Is(err, store.ErrNotFound):
		log.Error("idempotency lookup failed", zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to issue card"))
		return
	}

	escn, err := a.gen.Generate(ctx, a.issuer.Prefix, a.issuer.PIC)
	if err != nil {
		observability.CardsIssuedTotal.WithLabelValues("failed").Inc()
		log.Error("generate escn failed", zap.Error(err))
		WriteError(w, core.AsAppError(err))
		return
	}

	if err := a.registry.RegisterCard(ctx, studentID, escn, req.CardType); err != nil {
		observability.CardsIssuedTotal.WithLabelValues("failed").Inc()
		log.Warn("register card failed", zap.String("escn", escn), zap.Error(err))
		WriteError(w, core.AsAppError(err))
		return
	}

	d, _ := core.Decode(escn)
	issued, err := a.ledger.InsertIssuedCard(ctx, core.IssuedCard{
		IssueID:        core.NewID(),
		ESCN:           escn,
		StudentID:      studentID,
		Prefix:         d.Prefix,
		PIC:            d.PIC,
		CardType:       req.CardType,
		IdempotencyKey: idempotencyKey,
		RequestHash:    requestHash,
	})
	if errors.Is(err, store.ErrDuplicate) {
		// Only reachable without a Locker: another request won the insert.
		log.Warn("card registered twice for one idempotency key", zap.String("escn", escn))
		existing, err = a.ledger.GetIssuedCardByIdempotencyKey(ctx, studentID, idempotencyKey)
		if err == nil {
			a.replay(w, existing, requestHash)
			return
		}
	}
	if err != nil {
		observability.CardsIssuedTotal.WithLabelValues("failed").Inc()
		log.Error("record issued card failed", zap.String("escn", escn), zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "card registered but not recorded"))
		return
	}

	observability.CardsIssuedTotal.WithLabelValues("issued").Inc()
	log.Info("card issued", zap.String("escn", escn))
	WriteJSON(w, http.StatusCreated, issued)
}

func (a *API) replay(w http.ResponseWriter, existing core.IssuedCard, requestHash string) {
	if existing.RequestHash != requestHash {
		observability.CardsIssuedTotal.WithLabelValues("conflict").Inc()
		WriteError(w, core.NewAppError(core.ErrConflictIdempotent, "idempotency key mismatch"))
		return
	}
	observability.CardsIssuedTotal.WithLabelValues("replayed").Inc()
	WriteJSON(w, http.StatusOK, existing)
}

func parseLimit(s string, defaultVal, maxVal int) int {
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return defaultVal
	}
	if n > maxVal {
		return maxVal
	}
	return n
}
