package content

import "context"

// Repository is the workspace-qualified catalog store. Implementations
// must treat rows outside the given workspace as absent.
type Repository interface {
	CreateSubject(ctx context.Context, subject *Subject) error
	GetSubject(ctx context.Context, workspaceID, subjectID string) (*Subject, error)
	ListSubjects(ctx context.Context, workspaceID string) ([]*Subject, error)
	DeleteSubject(ctx context.Context, workspaceID, subjectID string) error

	CreateCourse(ctx context.Context, course *Course) error
	GetCourse(ctx context.Context, workspaceID, courseID string) (*Course, error)
	ListCourses(ctx context.Context, workspaceID string, publishedOnly bool) ([]*Course, error)
	UpdateCourse(ctx context.Context, course *Course) error
	DeleteCourse(ctx context.Context, workspaceID, courseID string) error

	CreateEnrollment(ctx context.Context, enrollment *Enrollment) error
	ListEnrollments(ctx context.Context, workspaceID, courseID string) ([]*Enrollment, error)
	ListAccountEnrollments(ctx context.Context, workspaceID, accountID string) ([]*Enrollment, error)
	CancelEnrollment(ctx context.Context, workspaceID, enrollmentID string) error
}
