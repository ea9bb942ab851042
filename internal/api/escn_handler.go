package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lzjever/escn/internal/core"
	"github.com/lzjever/escn/internal/store"
)

// GenerateRequest takes prefix and pic as JSON strings or integers.
type GenerateRequest struct {
	Prefix interface{} `json:"prefix"`
	PIC    interface{} `json:"pic"`
	Count  int         `json:"count"`
}

type GenerateResponse struct {
	ESCNs []string `json:"escns"`
}

type DecodeResponse struct {
	core.Decoded
	SeededAt string           `json:"seeded_at"`
	Tick     uint64           `json:"tick"`
	Issued   *core.IssuedCard `json:"issued,omitempty"`
}

// GenerateESCNs mints one or more ESCNs. Prefix and PIC default to the
// issuing institution.
func (a *API) GenerateESCNs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req GenerateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, bodyError(err))
		return
	}
	prefix, err := core.PrefixValue(req.Prefix)
	if err != nil {
		WriteError(w, core.AsAppError(err))
		return
	}
	pic, err := core.PICValue(req.PIC)
	if err != nil {
		WriteError(w, core.AsAppError(err))
		return
	}
	if prefix == "" {
		prefix = a.issuer.Prefix
	}
	if pic == "" {
		pic = a.issuer.PIC
	}
	if req.Count == 0 {
		req.Count = 1
	}
	if req.Count < 0 || req.Count > a.cfg.MaxBatch {
		WriteError(w, core.NewAppError(core.ErrBadRequest, fmt.Sprintf("count must be between 1 and %d", a.cfg.MaxBatch)))
		return
	}

	escns := make([]string, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		escn, err := a.gen.Generate(ctx, prefix, pic)
		if err != nil {
			appErr := core.AsAppError(err)
			if appErr.Code == core.ErrInternal || appErr.Code == core.ErrGeneratorUnavailable {
				a.log.Error("generate escn failed", zap.Error(err))
			}
			WriteError(w, appErr)
			return
		}
		escns = append(escns, escn)
	}

	WriteJSON(w, http.StatusOK, GenerateResponse{ESCNs: escns})
}

// DecodeESCN splits an ESCN into its fields and attaches the ledger entry
// when the ESCN was issued here.
func (a *API) DecodeESCN(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	d, err := core.Decode(chi.URLParam(r, "escn"))
	if err != nil {
		WriteError(w, core.AsAppError(err))
		return
	}

	resp := DecodeResponse{
		Decoded:  d,
		SeededAt: d.WallClock().Format(time.RFC3339Nano),
		Tick:     d.Tick(),
	}

	issued, err := a.ledger.GetIssuedCard(ctx, d.ESCN)
	switch {
	case err == nil:
		resp.Issued = &issued
	case !errors.Is(err, store.ErrNotFound):
		a.log.Error("ledger lookup failed", zap.String("escn", d.ESCN), zap.Error(err))
		WriteError(w, core.NewAppError(core.ErrInternal, "failed to look up escn"))
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}
