package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresRepository stores the catalog in Postgres. All statements
// carry a workspace_id predicate.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateSubject(ctx context.Context, subject *Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.New().String()
	}
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subjects (id, workspace_id, name, description, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		subject.ID, subject.WorkspaceID, subject.Name, subject.Description, subject.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting subject: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetSubject(ctx context.Context, workspaceID, subjectID string) (*Subject, error) {
	var s Subject
	var desc sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, description, created_at
		FROM subjects WHERE workspace_id = $1 AND id = $2`,
		workspaceID, subjectID,
	).Scan(&s.ID, &s.WorkspaceID, &s.Name, &desc, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying subject: %w", err)
	}
	s.Description = desc.String
	return &s, nil
}

func (r *PostgresRepository) ListSubjects(ctx context.Context, workspaceID string) ([]*Subject, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, description, created_at
		FROM subjects WHERE workspace_id = $1 ORDER BY name`,
		workspaceID)
	if err != nil {
		return nil, fmt.Errorf("listing subjects: %w", err)
	}
	defer rows.Close()

	var subjects []*Subject
	for rows.Next() {
		var s Subject
		var desc sql.NullString
		if err := rows.Scan(&s.ID, &s.WorkspaceID, &s.Name, &desc, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning subject: %w", err)
		}
		s.Description = desc.String
		subjects = append(subjects, &s)
	}
	return subjects, rows.Err()
}

func (r *PostgresRepository) DeleteSubject(ctx context.Context, workspaceID, subjectID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM subjects WHERE workspace_id = $1 AND id = $2`,
		workspaceID, subjectID)
	if err != nil {
		return fmt.Errorf("deleting subject: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) CreateCourse(ctx context.Context, course *Course) error {
	if course.ID == "" {
		course.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	// The subject subquery pins the course to a subject in the same
	// workspace; a cross-workspace subject id inserts nothing.
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO courses (id, workspace_id, subject_id, title, description, published, created_at, updated_at)
		SELECT $1, $2, s.id, $4, $5, $6, $7, $8
		FROM subjects s WHERE s.workspace_id = $2 AND s.id = $3`,
		course.ID, course.WorkspaceID, course.SubjectID, course.Title,
		course.Description, course.Published, course.CreatedAt, course.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting course: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) GetCourse(ctx context.Context, workspaceID, courseID string) (*Course, error) {
	var c Course
	var desc sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, subject_id, title, description, published, created_at, updated_at
		FROM courses WHERE workspace_id = $1 AND id = $2`,
		workspaceID, courseID,
	).Scan(&c.ID, &c.WorkspaceID, &c.SubjectID, &c.Title, &desc, &c.Published, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying course: %w", err)
	}
	c.Description = desc.String
	return &c, nil
}

func (r *PostgresRepository) ListCourses(ctx context.Context, workspaceID string, publishedOnly bool) ([]*Course, error) {
	query := `
		SELECT id, workspace_id, subject_id, title, description, published, created_at, updated_at
		FROM courses WHERE workspace_id = $1`
	args := []any{workspaceID}
	if publishedOnly {
		query += ` AND published`
	}
	query += ` ORDER BY title`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	defer rows.Close()

	var courses []*Course
	for rows.Next() {
		var c Course
		var desc sql.NullString
		if err := rows.Scan(&c.ID, &c.WorkspaceID, &c.SubjectID, &c.Title, &desc,
			&c.Published, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning course: %w", err)
		}
		c.Description = desc.String
		courses = append(courses, &c)
	}
	return courses, rows.Err()
}

func (r *PostgresRepository) UpdateCourse(ctx context.Context, course *Course) error {
	course.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE courses SET title = $3, description = $4, published = $5, updated_at = $6
		WHERE workspace_id = $1 AND id = $2`,
		course.WorkspaceID, course.ID, course.Title, course.Description,
		course.Published, course.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating course: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) DeleteCourse(ctx context.Context, workspaceID, courseID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM courses WHERE workspace_id = $1 AND id = $2`,
		workspaceID, courseID)
	if err != nil {
		return fmt.Errorf("deleting course: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) CreateEnrollment(ctx context.Context, enrollment *Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.New().String()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = EnrollmentActive
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO enrollments (id, workspace_id, course_id, account_id, status, enrolled_at)
		SELECT $1, $2, c.id, $4, $5, $6
		FROM courses c WHERE c.workspace_id = $2 AND c.id = $3
		ON CONFLICT (course_id, account_id) DO NOTHING`,
		enrollment.ID, enrollment.WorkspaceID, enrollment.CourseID,
		enrollment.AccountID, enrollment.Status, enrollment.EnrolledAt)
	if err != nil {
		return fmt.Errorf("inserting enrollment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking enrollment insert: %w", err)
	}
	if n == 0 {
		exists, err := r.enrollmentExists(ctx, enrollment.WorkspaceID, enrollment.CourseID, enrollment.AccountID)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyEnrolled
		}
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) enrollmentExists(ctx context.Context, workspaceID, courseID, accountID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM enrollments
			WHERE workspace_id = $1 AND course_id = $2 AND account_id = $3
		)`, workspaceID, courseID, accountID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking enrollment: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) ListEnrollments(ctx context.Context, workspaceID, courseID string) ([]*Enrollment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workspace_id, course_id, account_id, status, enrolled_at
		FROM enrollments WHERE workspace_id = $1 AND course_id = $2
		ORDER BY enrolled_at`,
		workspaceID, courseID)
	if err != nil {
		return nil, fmt.Errorf("listing enrollments: %w", err)
	}
	defer rows.Close()
	return scanEnrollments(rows)
}

func (r *PostgresRepository) ListAccountEnrollments(ctx context.Context, workspaceID, accountID string) ([]*Enrollment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, workspace_id, course_id, account_id, status, enrolled_at
		FROM enrollments WHERE workspace_id = $1 AND account_id = $2
		ORDER BY enrolled_at`,
		workspaceID, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing account enrollments: %w", err)
	}
	defer rows.Close()
	return scanEnrollments(rows)
}

func scanEnrollments(rows *sql.Rows) ([]*Enrollment, error) {
	var enrollments []*Enrollment
	for rows.Next() {
		var e Enrollment
		if err := rows.Scan(&e.ID, &e.WorkspaceID, &e.CourseID, &e.AccountID,
			&e.Status, &e.EnrolledAt); err != nil {
			return nil, fmt.Errorf("scanning enrollment: %w", err)
		}
		enrollments = append(enrollments, &e)
	}
	return enrollments, rows.Err()
}

func (r *PostgresRepository) CancelEnrollment(ctx context.Context, workspaceID, enrollmentID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE enrollments SET status = $3
		WHERE workspace_id = $1 AND id = $2 AND status <> $3`,
		workspaceID, enrollmentID, EnrollmentCancelled)
	if err != nil {
		return fmt.Errorf("cancelling enrollment: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
