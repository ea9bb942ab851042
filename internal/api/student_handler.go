package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lzjever/escn/internal/core"
)

type CreateStudentRequest struct {
	StudentID  string `json:"student_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	ExpiryDate string `json:"expiry_date"`
}

type StudentResponse struct {
	StudentID string `json:"student_id"`
	Exists    bool   `json:"exists"`
}

// GetStudent reports whether the registry knows the student.
func (a *API) GetStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "student_id")

	exists, err := a.registry.StudentExists(r.Context(), studentID)
	if err != nil {
		a.log.Warn("student lookup failed", zap.String("student_id", studentID), zap.Error(err))
		WriteError(w, core.AsAppError(err))
		return
	}

	WriteJSON(w, http.StatusOK, StudentResponse{StudentID: studentID, Exists: exists})
}

// CreateStudent registers a student with the institution's PIC.
func (a *API) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		WriteError(w, bodyError(err))
		return
	}
	if req.StudentID == "" || req.Email == "" {
		WriteError(w, core.NewAppError(core.ErrBadRequest, "student_id and email are required"))
		return
	}

	err := a.registry.CreateStudent(r.Context(), core.Student{
		PIC:        a.issuer.PIC,
		StudentID:  req.StudentID,
		Email:      req.Email,
		ExpiryDate: req.ExpiryDate,
		Name:       req.Name,
	})
	if err != nil {
		a.log.Warn("create student failed", zap.String("student_id", req.StudentID), zap.Error(err))
		WriteError(w, core.AsAppError(err))
		return
	}

	WriteJSON(w, http.StatusCreated, StudentResponse{StudentID: req.StudentID, Exists: true})
}

// GetStudentCard returns the card the registry holds for the student.
func (a *API) GetStudentCard(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "student_id")

	card, found, err := a.registry.StudentCardNumber(r.Context(), studentID)
	if err != nil {
		a.log.Warn("card lookup failed", zap.String("student_id", studentID), zap.Error(err))
		WriteError(w, core.AsAppError(err))
		return
	}
	if !found {
		WriteError(w, core.NewAppError(core.ErrNotFound, "student has no card"))
		return
	}

	WriteJSON(w, http.StatusOK, card)
}
