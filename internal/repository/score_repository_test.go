package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutrack/gradebook-api/internal/models"
)

func newScoreMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func scoreRows(obtained float64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "school_id", "student_id", "assessment_id", "score_obtained", "is_absent", "graded_date", "created_at", "updated_at"}).
		AddRow("score-1", "school-1", "s1", "a1", obtained, false, now, now, now)
}

func TestScoreRepositoryUpsertInsertsNewRow(t *testing.T) {
	db, mock, cleanup := newScoreMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM student_scores WHERE school_id = \\$1 AND student_id = \\$2 AND assessment_id = \\$3 FOR UPDATE").
		WithArgs("school-1", "s1", "a1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO student_scores").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	obtained := 42.0
	score := &models.StudentScore{SchoolID: "school-1", StudentID: "s1", AssessmentID: "a1", ScoreObtained: &obtained}
	err := repo.Upsert(context.Background(), score, "teacher-1", "initial entry")
	require.NoError(t, err)
	assert.NotEmpty(t, score.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryUpsertAppendsHistoryOnChange(t *testing.T) {
	db, mock, cleanup := newScoreMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM student_scores WHERE school_id = \\$1 AND student_id = \\$2 AND assessment_id = \\$3 FOR UPDATE").
		WithArgs("school-1", "s1", "a1").
		WillReturnRows(scoreRows(30))
	mock.ExpectExec("INSERT INTO grade_history").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE student_scores SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	obtained := 35.0
	score := &models.StudentScore{SchoolID: "school-1", StudentID: "s1", AssessmentID: "a1", ScoreObtained: &obtained}
	err := repo.Upsert(context.Background(), score, "teacher-1", "retally")
	require.NoError(t, err)
	assert.Equal(t, "score-1", score.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryUpsertNoHistoryWhenUnchanged(t *testing.T) {
	db, mock, cleanup := newScoreMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM student_scores WHERE school_id = \\$1 AND student_id = \\$2 AND assessment_id = \\$3 FOR UPDATE").
		WithArgs("school-1", "s1", "a1").
		WillReturnRows(scoreRows(30))
	mock.ExpectExec("UPDATE student_scores SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	obtained := 30.0
	score := &models.StudentScore{SchoolID: "school-1", StudentID: "s1", AssessmentID: "a1", ScoreObtained: &obtained}
	err := repo.Upsert(context.Background(), score, "teacher-1", "no change")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryBulkUpsertRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newScoreMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM student_scores WHERE school_id = \\$1 AND student_id = \\$2 AND assessment_id = \\$3 FOR UPDATE").
		WithArgs("school-1", "s1", "a1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO student_scores").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM student_scores WHERE school_id = \\$1 AND student_id = \\$2 AND assessment_id = \\$3 FOR UPDATE").
		WithArgs("school-1", "s2", "a1").
		WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback()

	a, b := 10.0, 20.0
	scores := []models.StudentScore{
		{SchoolID: "school-1", StudentID: "s1", AssessmentID: "a1", ScoreObtained: &a},
		{SchoolID: "school-1", StudentID: "s2", AssessmentID: "a1", ScoreObtained: &b},
	}
	err := repo.BulkUpsert(context.Background(), scores, "teacher-1", "bulk entry")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepositoryHistory(t *testing.T) {
	db, mock, cleanup := newScoreMock(t)
	defer cleanup()
	repo := NewScoreRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "school_id", "score_id", "student_id", "assessment_id", "old_score", "new_score", "changed_by", "change_reason", "created_at"}).
		AddRow("h1", "school-1", "score-1", "s1", "a1", 30.0, 35.0, "teacher-1", "retally", now)
	mock.ExpectQuery("SELECT (.+) FROM grade_history WHERE school_id = \\$1 AND score_id = \\$2 ORDER BY created_at").
		WithArgs("school-1", "score-1").
		WillReturnRows(rows)

	entries, err := repo.History(context.Background(), "school-1", "score-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "retally", entries[0].ChangeReason)
	assert.NoError(t, mock.ExpectationsWereMet())
}
