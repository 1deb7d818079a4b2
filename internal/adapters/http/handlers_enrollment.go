package http

import (
	"net/http"
	"strings"

	"github.com/viralforge/academic-records/internal/application"
)

type registerRequest struct {
	SchoolID     string   `json:"school_id"`
	CourseTitle  string   `json:"course_title,omitempty"`
	CourseTitles []string `json:"course_titles,omitempty"`
}

// register handles both the single-course form (course_title) and the batch
// form (course_titles). A batch answers 207 when some items failed.
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "register", err)
		return
	}
	actor := claimsFromContext(r.Context())

	if strings.TrimSpace(req.CourseTitle) != "" && len(req.CourseTitles) == 0 {
		res, err := h.service.Register(r.Context(), actor, req.SchoolID, req.CourseTitle)
		if err != nil {
			writeMappedError(r.Context(), w, "register", err)
			return
		}
		writeSuccess(w, http.StatusCreated, res)
		return
	}

	titles := req.CourseTitles
	if strings.TrimSpace(req.CourseTitle) != "" {
		titles = append([]string{req.CourseTitle}, titles...)
	}
	outcomes, err := h.service.RegisterBatch(r.Context(), actor, application.EnrollmentRequest{
		SchoolID:     req.SchoolID,
		CourseTitles: titles,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "register_batch", err)
		return
	}
	status := http.StatusCreated
	for _, outcome := range outcomes {
		if outcome.Status != application.EnrollmentRegistered {
			status = http.StatusMultiStatus
			break
		}
	}
	writeSuccess(w, status, outcomes)
}

func (h *Handler) unregister(w http.ResponseWriter, r *http.Request) {
	var req application.UnenrollRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "unregister", err)
		return
	}
	if err := h.service.Unregister(r.Context(), claimsFromContext(r.Context()), req); err != nil {
		writeMappedError(r.Context(), w, "unregister", err)
		return
	}
	writeMessage(w, http.StatusOK, "Course unregistered successfully")
}
