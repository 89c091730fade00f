package content

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository used by tests and local
// development. Safe for concurrent use.
type MemoryRepository struct {
	mu          sync.RWMutex
	subjects    map[string]*Subject
	courses     map[string]*Course
	enrollments map[string]*Enrollment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		subjects:    make(map[string]*Subject),
		courses:     make(map[string]*Course),
		enrollments: make(map[string]*Enrollment),
	}
}

func (m *MemoryRepository) CreateSubject(_ context.Context, subject *Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if subject.ID == "" {
		subject.ID = uuid.New().String()
	}
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = time.Now().UTC()
	}
	cp := *subject
	m.subjects[subject.ID] = &cp
	return nil
}

func (m *MemoryRepository) GetSubject(_ context.Context, workspaceID, subjectID string) (*Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subjects[subjectID]
	if !ok || s.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryRepository) ListSubjects(_ context.Context, workspaceID string) ([]*Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Subject
	for _, s := range m.subjects {
		if s.WorkspaceID == workspaceID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryRepository) DeleteSubject(_ context.Context, workspaceID, subjectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subjects[subjectID]
	if !ok || s.WorkspaceID != workspaceID {
		return ErrNotFound
	}
	delete(m.subjects, subjectID)
	return nil
}

func (m *MemoryRepository) CreateCourse(_ context.Context, course *Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subjects[course.SubjectID]
	if !ok || s.WorkspaceID != course.WorkspaceID {
		return ErrNotFound
	}
	if course.ID == "" {
		course.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	cp := *course
	m.courses[course.ID] = &cp
	return nil
}

func (m *MemoryRepository) GetCourse(_ context.Context, workspaceID, courseID string) (*Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[courseID]
	if !ok || c.WorkspaceID != workspaceID {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryRepository) ListCourses(_ context.Context, workspaceID string, publishedOnly bool) ([]*Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Course
	for _, c := range m.courses {
		if c.WorkspaceID != workspaceID {
			continue
		}
		if publishedOnly && !c.Published {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (m *MemoryRepository) UpdateCourse(_ context.Context, course *Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.courses[course.ID]
	if !ok || existing.WorkspaceID != course.WorkspaceID {
		return ErrNotFound
	}
	course.UpdatedAt = time.Now().UTC()
	course.CreatedAt = existing.CreatedAt
	cp := *course
	m.courses[course.ID] = &cp
	return nil
}

func (m *MemoryRepository) DeleteCourse(_ context.Context, workspaceID, courseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[courseID]
	if !ok || c.WorkspaceID != workspaceID {
		return ErrNotFound
	}
	delete(m.courses, courseID)
	return nil
}

func (m *MemoryRepository) CreateEnrollment(_ context.Context, enrollment *Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[enrollment.CourseID]
	if !ok || c.WorkspaceID != enrollment.WorkspaceID {
		return ErrNotFound
	}
	for _, e := range m.enrollments {
		if e.CourseID == enrollment.CourseID && e.AccountID == enrollment.AccountID {
			return ErrAlreadyEnrolled
		}
	}
	if enrollment.ID == "" {
		enrollment.ID = uuid.New().String()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = EnrollmentActive
	}
	cp := *enrollment
	m.enrollments[enrollment.ID] = &cp
	return nil
}

func (m *MemoryRepository) ListEnrollments(_ context.Context, workspaceID, courseID string) ([]*Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Enrollment
	for _, e := range m.enrollments {
		if e.WorkspaceID == workspaceID && e.CourseID == courseID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrolledAt.Before(out[j].EnrolledAt) })
	return out, nil
}

func (m *MemoryRepository) ListAccountEnrollments(_ context.Context, workspaceID, accountID string) ([]*Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Enrollment
	for _, e := range m.enrollments {
		if e.WorkspaceID == workspaceID && e.AccountID == accountID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrolledAt.Before(out[j].EnrolledAt) })
	return out, nil
}

func (m *MemoryRepository) CancelEnrollment(_ context.Context, workspaceID, enrollmentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[enrollmentID]
	if !ok || e.WorkspaceID != workspaceID || e.Status == EnrollmentCancelled {
		return ErrNotFound
	}
	e.Status = EnrollmentCancelled
	return nil
}
