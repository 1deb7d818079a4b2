package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
)

type scoreRequest struct {
	Score *float64 `json:"score"`
}

func gradeKey(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	studentID, err := uuidParam(r, "student_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	courseID, err := uuidParam(r, "course_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return studentID, courseID, nil
}

func decodeScore(r *http.Request) (float64, error) {
	var req scoreRequest
	if err := decodeBody(r, &req); err != nil {
		return 0, err
	}
	if req.Score == nil {
		return 0, errors.New("score is required")
	}
	return *req.Score, nil
}

func (h *Handler) getGrade(w http.ResponseWriter, r *http.Request) {
	studentID, courseID, err := gradeKey(r)
	if err != nil {
		writeValidationError(r.Context(), w, "get_grade", err)
		return
	}
	res, err := h.service.GetGrade(r.Context(), claimsFromContext(r.Context()), studentID, courseID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_grade", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) assignGrade(w http.ResponseWriter, r *http.Request) {
	studentID, courseID, err := gradeKey(r)
	if err != nil {
		writeValidationError(r.Context(), w, "assign_grade", err)
		return
	}
	score, err := decodeScore(r)
	if err != nil {
		writeValidationError(r.Context(), w, "assign_grade", err)
		return
	}
	res, err := h.service.AssignGrade(r.Context(), claimsFromContext(r.Context()), studentID, courseID, score)
	if err != nil {
		writeMappedError(r.Context(), w, "assign_grade", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) updateGrade(w http.ResponseWriter, r *http.Request) {
	studentID, courseID, err := gradeKey(r)
	if err != nil {
		writeValidationError(r.Context(), w, "update_grade", err)
		return
	}
	score, err := decodeScore(r)
	if err != nil {
		writeValidationError(r.Context(), w, "update_grade", err)
		return
	}
	res, err := h.service.UpdateGrade(r.Context(), claimsFromContext(r.Context()), studentID, courseID, score)
	if err != nil {
		writeMappedError(r.Context(), w, "update_grade", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) deleteGrade(w http.ResponseWriter, r *http.Request) {
	studentID, courseID, err := gradeKey(r)
	if err != nil {
		writeValidationError(r.Context(), w, "delete_grade", err)
		return
	}
	if err := h.service.DeleteGrade(r.Context(), claimsFromContext(r.Context()), studentID, courseID); err != nil {
		writeMappedError(r.Context(), w, "delete_grade", err)
		return
	}
	writeMessage(w, http.StatusOK, "Grade deleted successfully")
}
