package http

import (
	"net/http"

	"github.com/viralforge/academic-records/internal/application"
)

func (h *Handler) createCourse(w http.ResponseWriter, r *http.Request) {
	var req application.CourseRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_course", err)
		return
	}
	res, err := h.service.CreateCourse(r.Context(), claimsFromContext(r.Context()), req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_course", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) listCourses(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListCourses(r.Context(), claimsFromContext(r.Context()))
	if err != nil {
		writeMappedError(r.Context(), w, "list_courses", err)
		return
	}
	writeSuccess(w, http.StatusOK, items)
}

func (h *Handler) getCourse(w http.ResponseWriter, r *http.Request) {
	courseID, err := uuidParam(r, "id")
	if err != nil {
		writeValidationError(r.Context(), w, "get_course", err)
		return
	}
	res, err := h.service.GetCourse(r.Context(), claimsFromContext(r.Context()), courseID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_course", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) updateCourse(w http.ResponseWriter, r *http.Request) {
	courseID, err := uuidParam(r, "id")
	if err != nil {
		writeValidationError(r.Context(), w, "update_course", err)
		return
	}
	var req application.UpdateCourseRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "update_course", err)
		return
	}
	res, err := h.service.UpdateCourse(r.Context(), claimsFromContext(r.Context()), courseID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "update_course", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) deleteCourse(w http.ResponseWriter, r *http.Request) {
	courseID, err := uuidParam(r, "id")
	if err != nil {
		writeValidationError(r.Context(), w, "delete_course", err)
		return
	}
	if err := h.service.DeleteCourse(r.Context(), claimsFromContext(r.Context()), courseID); err != nil {
		writeMappedError(r.Context(), w, "delete_course", err)
		return
	}
	writeMessage(w, http.StatusOK, "Course deleted successfully")
}

func (h *Handler) courseStudents(w http.ResponseWriter, r *http.Request) {
	courseID, err := uuidParam(r, "id")
	if err != nil {
		writeValidationError(r.Context(), w, "course_students", err)
		return
	}
	items, err := h.service.StudentsOf(r.Context(), claimsFromContext(r.Context()), courseID)
	if err != nil {
		writeMappedError(r.Context(), w, "course_students", err)
		return
	}
	writeSuccess(w, http.StatusOK, items)
}
