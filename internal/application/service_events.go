package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/viralforge/academic-records/internal/ports"
)

const (
	eventTypeAdminCreated           = "admin.created"
	eventTypeTeacherCreated         = "teacher.created"
	eventTypeStudentCreated         = "student.created"
	eventTypeUserDeleted            = "user.deleted"
	eventTypeCourseCreated          = "course.created"
	eventTypeCourseUpdated          = "course.updated"
	eventTypeCourseDeleted          = "course.deleted"
	eventTypeEnrollmentRegistered   = "enrollment.registered"
	eventTypeEnrollmentUnregistered = "enrollment.unregistered"
	eventTypeGradeAssigned          = "grade.assigned"
	eventTypeGradeUpdated           = "grade.updated"
	eventTypeGradeDeleted           = "grade.deleted"
	eventTypeGPARecomputed          = "gpa.recomputed"
)

// enqueue writes an outbox event through the transaction-bound writer so the
// event commits or rolls back together with the state change.
func (s *Service) enqueue(ctx context.Context, repos ports.Repositories, eventType, partitionKey string, payload map[string]any) error {
	if repos.Outbox == nil {
		return nil
	}
	now := s.nowFn()
	payload["occurred_at"] = now
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return repos.Outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      raw,
		OccurredAt:   now,
	})
}
