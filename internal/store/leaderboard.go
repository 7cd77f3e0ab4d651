package store

import (
	"context"
	"database/sql"

	appErr "mlgrader/pkg/errors"
)

// Leaderboard returns one row per student who has at least one evaluated job
// for the task: their best-ranked job by attack score, plus their total count
// of evaluated jobs for the task. Rows are ordered by attack score in the
// configured direction. Derived on every call, never stored.
func (s *SQLStore) Leaderboard(ctx context.Context, task Task) ([]LeaderboardRow, error) {
	column, err := taskColumn(task)
	if err != nil {
		return nil, err
	}
	dir := s.rankDirection()

	query := `
		WITH task_solutions AS (
			SELECT job_id, identity, submitted_at,
				` + column + `_clean AS clean_score,
				` + column + `_attack AS attack_score
			FROM submissions WHERE ` + column + `_attack IS NOT NULL
		),
		solution_ranks AS (
			SELECT job_id,
				ROW_NUMBER() OVER (PARTITION BY identity ORDER BY attack_score ` + dir + `) AS rn
			FROM task_solutions
		),
		solution_counts AS (
			SELECT identity, COUNT(*) AS solution_count FROM task_solutions
			GROUP BY identity
		)
		SELECT students.identity, students.full_name, students.student_number,
			task_solutions.attack_score, task_solutions.clean_score,
			task_solutions.submitted_at, solution_counts.solution_count
		FROM students
			JOIN task_solutions ON students.identity = task_solutions.identity
			JOIN solution_ranks ON task_solutions.job_id = solution_ranks.job_id
			JOIN solution_counts ON students.identity = solution_counts.identity
		WHERE rn = 1 ORDER BY task_solutions.attack_score ` + dir

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.LeaderboardQueryFailed, "query leaderboard failed")
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]LeaderboardRow, 0)
	for rows.Next() {
		var row LeaderboardRow
		var fullName sql.NullString
		var number sql.NullInt64
		if err := rows.Scan(
			&row.Identity,
			&fullName,
			&number,
			&row.Attack,
			&row.Clean,
			&row.SubmittedAt,
			&row.Count,
		); err != nil {
			return nil, appErr.Wrapf(err, appErr.LeaderboardQueryFailed, "scan leaderboard row failed")
		}
		row.FullName = fullName.String
		row.StudentNumber = number.Int64
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, appErr.Wrapf(err, appErr.LeaderboardQueryFailed, "iterate leaderboard failed")
	}
	return result, nil
}
