package http

import (
	"context"
	"net/http"

	"github.com/viralforge/academic-records/internal/application"
	"github.com/viralforge/academic-records/internal/domain"
)

func (h *Handler) createTeacher(w http.ResponseWriter, r *http.Request) {
	h.createUser(w, r, "create_teacher", h.service.CreateTeacher)
}

func (h *Handler) createStudent(w http.ResponseWriter, r *http.Request) {
	h.createUser(w, r, "create_student", h.service.CreateStudent)
}

type createUserFunc func(ctx context.Context, actor domain.Claims, req application.CreateUserRequest) (application.UserView, error)

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request, operation string, create createUserFunc) {
	var req application.CreateUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, operation, err)
		return
	}
	res, err := create(r.Context(), claimsFromContext(r.Context()), req)
	if err != nil {
		writeMappedError(r.Context(), w, operation, err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) listAdmins(w http.ResponseWriter, r *http.Request) {
	h.listUsers(w, r, domain.RoleAdmin)
}

func (h *Handler) listTeachers(w http.ResponseWriter, r *http.Request) {
	h.listUsers(w, r, domain.RoleTeacher)
}

func (h *Handler) listStudents(w http.ResponseWriter, r *http.Request) {
	h.listUsers(w, r, domain.RoleStudent)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request, role domain.Role) {
	items, err := h.service.ListUsers(r.Context(), claimsFromContext(r.Context()), role)
	if err != nil {
		writeMappedError(r.Context(), w, "list_"+string(role)+"s", err)
		return
	}
	writeSuccess(w, http.StatusOK, items)
}

func (h *Handler) getAdmin(w http.ResponseWriter, r *http.Request) {
	h.getUser(w, r, domain.RoleAdmin)
}

func (h *Handler) getTeacher(w http.ResponseWriter, r *http.Request) {
	h.getUser(w, r, domain.RoleTeacher)
}

func (h *Handler) getStudent(w http.ResponseWriter, r *http.Request) {
	h.getUser(w, r, domain.RoleStudent)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request, role domain.Role) {
	operation := "get_" + string(role)
	userID, err := uuidParam(r, "id")
	if err != nil {
		writeValidationError(r.Context(), w, operation, err)
		return
	}
	res, err := h.service.GetUser(r.Context(), claimsFromContext(r.Context()), role, userID)
	if err != nil {
		writeMappedError(r.Context(), w, operation, err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) updateTeacher(w http.ResponseWriter, r *http.Request) {
	h.updateUser(w, r, domain.RoleTeacher)
}

func (h *Handler) updateStudent(w http.ResponseWriter, r *http.Request) {
	h.updateUser(w, r, domain.RoleStudent)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request, role domain.Role) {
	operation := "update_" + string(role)
	userID, err := uuidParam(r, "id")
	if err != nil {
		writeValidationError(r.Context(), w, operation, err)
		return
	}
	var req application.UpdateUserRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, operation, err)
		return
	}
	res, err := h.service.UpdateUser(r.Context(), claimsFromContext(r.Context()), role, userID, req)
	if err != nil {
		writeMappedError(r.Context(), w, operation, err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) deleteTeacher(w http.ResponseWriter, r *http.Request) {
	h.deleteUser(w, r, domain.RoleTeacher)
}

func (h *Handler) deleteStudent(w http.ResponseWriter, r *http.Request) {
	h.deleteUser(w, r, domain.RoleStudent)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request, role domain.Role) {
	operation := "delete_" + string(role)
	userID, err := uuidParam(r, "id")
	if err != nil {
		writeValidationError(r.Context(), w, operation, err)
		return
	}
	if err := h.service.DeleteUser(r.Context(), claimsFromContext(r.Context()), role, userID); err != nil {
		writeMappedError(r.Context(), w, operation, err)
		return
	}
	writeMessage(w, http.StatusOK, "Deleted successfully")
}

func (h *Handler) teacherCourse(w http.ResponseWriter, r *http.Request) {
	teacherID, err := uuidParam(r, "id")
	if err != nil {
		writeValidationError(r.Context(), w, "teacher_course", err)
		return
	}
	res, err := h.service.TeacherCourse(r.Context(), claimsFromContext(r.Context()), teacherID)
	if err != nil {
		writeMappedError(r.Context(), w, "teacher_course", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) studentCourses(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuidParam(r, "id")
	if err != nil {
		writeValidationError(r.Context(), w, "student_courses", err)
		return
	}
	items, err := h.service.CoursesOf(r.Context(), claimsFromContext(r.Context()), studentID)
	if err != nil {
		writeMappedError(r.Context(), w, "student_courses", err)
		return
	}
	writeSuccess(w, http.StatusOK, items)
}

func (h *Handler) studentResult(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuidParam(r, "id")
	if err != nil {
		writeValidationError(r.Context(), w, "student_result", err)
		return
	}
	res, err := h.service.Result(r.Context(), claimsFromContext(r.Context()), studentID)
	if err != nil {
		writeMappedError(r.Context(), w, "student_result", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) recomputeGPA(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuidParam(r, "id")
	if err != nil {
		writeValidationError(r.Context(), w, "recompute_gpa", err)
		return
	}
	gpa, err := h.service.RecomputeGPA(r.Context(), claimsFromContext(r.Context()), studentID)
	if err != nil {
		writeMappedError(r.Context(), w, "recompute_gpa", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"student_id": studentID,
		"gpa":        gpa,
	})
}
