package store

import (
	"context"
	"database/sql"

	"mlgrader/internal/common/db"
	appErr "mlgrader/pkg/errors"
)

// UpsertStudentName inserts or updates the student's full name by identity.
func (s *SQLStore) UpsertStudentName(ctx context.Context, identity int64, name string) error {
	const query = `
		INSERT INTO students(identity, full_name) VALUES(?, ?)
		ON CONFLICT(identity) DO UPDATE SET full_name = excluded.full_name`
	if _, err := s.db.Exec(ctx, query, identity, name); err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "upsert student name failed")
	}
	return nil
}

// UpsertStudentNumber inserts or updates the student's enrollment number by identity.
func (s *SQLStore) UpsertStudentNumber(ctx context.Context, identity int64, number int64) error {
	const query = `
		INSERT INTO students(identity, student_number) VALUES(?, ?)
		ON CONFLICT(identity) DO UPDATE SET student_number = excluded.student_number`
	if _, err := s.db.Exec(ctx, query, identity, number); err != nil {
		return appErr.Wrapf(err, appErr.DatabaseError, "upsert student number failed")
	}
	return nil
}

// GetStudent retrieves a student by identity. Returns ErrStudentNotFound when
// no row exists.
func (s *SQLStore) GetStudent(ctx context.Context, identity int64) (*Student, error) {
	const query = `SELECT full_name, student_number FROM students WHERE identity = ? LIMIT 1`

	var fullName sql.NullString
	var number sql.NullInt64
	if err := s.db.QueryRow(ctx, query, identity).Scan(&fullName, &number); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrStudentNotFound
		}
		return nil, appErr.Wrapf(err, appErr.DatabaseError, "get student failed")
	}

	student := &Student{Identity: identity}
	if fullName.Valid {
		student.FullName = fullName.String
	}
	if number.Valid {
		student.StudentNumber = number.Int64
		student.NumberSet = true
	}
	return student, nil
}
