package content

import "context"

// Scoped binds a Repository to a single workspace. Handlers receive a
// Scoped handle rather than the raw Repository, so they cannot name a
// foreign workspace even by mistake.
type Scoped struct {
	repo        Repository
	workspaceID string
}

func NewScoped(repo Repository, workspaceID string) *Scoped {
	return &Scoped{repo: repo, workspaceID: workspaceID}
}

// WorkspaceID returns the workspace this handle is bound to.
func (s *Scoped) WorkspaceID() string { return s.workspaceID }

func (s *Scoped) CreateSubject(ctx context.Context, subject *Subject) error {
	subject.WorkspaceID = s.workspaceID
	return s.repo.CreateSubject(ctx, subject)
}

func (s *Scoped) GetSubject(ctx context.Context, subjectID string) (*Subject, error) {
	return s.repo.GetSubject(ctx, s.workspaceID, subjectID)
}

func (s *Scoped) ListSubjects(ctx context.Context) ([]*Subject, error) {
	return s.repo.ListSubjects(ctx, s.workspaceID)
}

func (s *Scoped) DeleteSubject(ctx context.Context, subjectID string) error {
	return s.repo.DeleteSubject(ctx, s.workspaceID, subjectID)
}

func (s *Scoped) CreateCourse(ctx context.Context, course *Course) error {
	course.WorkspaceID = s.workspaceID
	return s.repo.CreateCourse(ctx, course)
}

func (s *Scoped) GetCourse(ctx context.Context, courseID string) (*Course, error) {
	return s.repo.GetCourse(ctx, s.workspaceID, courseID)
}

func (s *Scoped) ListCourses(ctx context.Context, publishedOnly bool) ([]*Course, error) {
	return s.repo.ListCourses(ctx, s.workspaceID, publishedOnly)
}

func (s *Scoped) UpdateCourse(ctx context.Context, course *Course) error {
	course.WorkspaceID = s.workspaceID
	return s.repo.UpdateCourse(ctx, course)
}

func (s *Scoped) DeleteCourse(ctx context.Context, courseID string) error {
	return s.repo.DeleteCourse(ctx, s.workspaceID, courseID)
}

func (s *Scoped) CreateEnrollment(ctx context.Context, enrollment *Enrollment) error {
	enrollment.WorkspaceID = s.workspaceID
	return s.repo.CreateEnrollment(ctx, enrollment)
}

func (s *Scoped) ListEnrollments(ctx context.Context, courseID string) ([]*Enrollment, error) {
	return s.repo.ListEnrollments(ctx, s.workspaceID, courseID)
}

func (s *Scoped) ListAccountEnrollments(ctx context.Context, accountID string) ([]*Enrollment, error) {
	return s.repo.ListAccountEnrollments(ctx, s.workspaceID, accountID)
}

func (s *Scoped) CancelEnrollment(ctx context.Context, enrollmentID string) error {
	return s.repo.CancelEnrollment(ctx, s.workspaceID, enrollmentID)
}
