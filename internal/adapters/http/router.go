package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/viralforge/academic-records/internal/application"
)

// ReadinessCheck reports whether the backing stores can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Handler is the HTTP adapter entrypoint for the records use cases.
type Handler struct {
	service *application.Service
	ready   ReadinessCheck
}

func NewHandler(service *application.Service, ready ReadinessCheck) *Handler {
	return &Handler{service: service, ready: ready}
}

// NewRouter registers the records API under /records/v1 together with the
// health, metrics and docs endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(metricsMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})
	r.Get("/swagger/openapi.yaml", handler.swaggerSpec)
	r.Get("/swagger/*", swaggerUI())

	r.Route("/records/v1", func(r chi.Router) {
		r.Post("/auth/login", handler.login)
		r.Post("/auth/refresh", handler.refresh)
		r.Post("/auth/logout", handler.logout)
		r.With(handler.optionalAuthMiddleware).Post("/admins/signup", handler.signUpAdmin)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Post("/auth/change-password", handler.changePassword)

			r.Get("/admins", handler.listAdmins)
			r.Get("/admins/{id}", handler.getAdmin)

			r.Post("/teachers", handler.createTeacher)
			r.Get("/teachers", handler.listTeachers)
			r.Get("/teachers/{id}", handler.getTeacher)
			r.Put("/teachers/{id}", handler.updateTeacher)
			r.Delete("/teachers/{id}", handler.deleteTeacher)
			r.Get("/teachers/{id}/course", handler.teacherCourse)

			r.Post("/students", handler.createStudent)
			r.Get("/students", handler.listStudents)
			r.Get("/students/{id}", handler.getStudent)
			r.Put("/students/{id}", handler.updateStudent)
			r.Delete("/students/{id}", handler.deleteStudent)
			r.Get("/students/{id}/courses", handler.studentCourses)
			r.Get("/students/{id}/result", handler.studentResult)
			r.Post("/students/{id}/gpa", handler.recomputeGPA)

			r.Post("/courses", handler.createCourse)
			r.Get("/courses", handler.listCourses)
			r.Get("/courses/{id}", handler.getCourse)
			r.Put("/courses/{id}", handler.updateCourse)
			r.Delete("/courses/{id}", handler.deleteCourse)
			r.Get("/courses/{id}/students", handler.courseStudents)

			r.Post("/enrollments", handler.register)
			r.Delete("/enrollments", handler.unregister)

			r.Get("/grades/{student_id}/{course_id}", handler.getGrade)
			r.Post("/grades/{student_id}/{course_id}", handler.assignGrade)
			r.Put("/grades/{student_id}/{course_id}", handler.updateGrade)
			r.Delete("/grades/{student_id}/{course_id}", handler.deleteGrade)
		})
	})

	return r
}
