package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/assessor/internal/model"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serializes writers anyway; a single connection also keeps
	// ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exams (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		input_text TEXT NOT NULL DEFAULT '',
		student_id INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exam_id INTEGER NOT NULL,
		question_text TEXT NOT NULL,
		question_type TEXT NOT NULL,
		option_a TEXT,
		option_b TEXT,
		option_c TEXT,
		option_d TEXT,
		correct_answer TEXT NOT NULL,
		answer_guide TEXT,
		FOREIGN KEY (exam_id) REFERENCES exams(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_questions_exam ON questions(exam_id);

	CREATE TABLE IF NOT EXISTS student_answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL,
		exam_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		selected TEXT NOT NULL DEFAULT '',
		correct INTEGER NOT NULL DEFAULT 0,
		points REAL NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_student_answers_attempt ON student_answers(student_id, exam_id);

	CREATE TABLE IF NOT EXISTS student_best_scores (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL,
		exam_id INTEGER NOT NULL,
		percentage REAL NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (student_id, exam_id)
	);

	CREATE TABLE IF NOT EXISTS store_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateExam stores an exam with its questions in one transaction and
// returns both with their assigned IDs.
func (s *Store) CreateExam(ctx context.Context, exam model.Exam, questions []model.Question) (model.Exam, []model.Question, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return exam, nil, err
	}
	defer tx.Rollback()

	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = time.Now()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO exams (title, description, input_text, student_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		exam.Title, exam.Description, exam.InputText, exam.StudentID, exam.CreatedAt,
	)
	if err != nil {
		return exam, nil, fmt.Errorf("insert exam: %w", err)
	}
	if exam.ID, err = res.LastInsertId(); err != nil {
		return exam, nil, err
	}

	saved := make([]model.Question, 0, len(questions))
	for _, q := range questions {
		q.ExamID = exam.ID
		row := toQuestionRow(q)
		res, err := tx.ExecContext(ctx,
			`INSERT INTO questions (exam_id, question_text, question_type, option_a, option_b, option_c, option_d, correct_answer, answer_guide)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.ExamID, q.Text, string(q.Type()), row.a, row.b, row.c, row.d, row.correct, row.guide,
		)
		if err != nil {
			return exam, nil, fmt.Errorf("insert question: %w", err)
		}
		if q.ID, err = res.LastInsertId(); err != nil {
			return exam, nil, err
		}
		saved = append(saved, q)
	}

	if err := tx.Commit(); err != nil {
		return exam, nil, err
	}
	return exam, saved, nil
}

// GetExam returns an exam by ID or model.ErrNotFound.
func (s *Store) GetExam(ctx context.Context, id int64) (model.Exam, error) {
	var e model.Exam
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, input_text, student_id, created_at FROM exams WHERE id = ?`, id,
	).Scan(&e.ID, &e.Title, &e.Description, &e.InputText, &e.StudentID, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return e, model.ErrNotFound
	}
	return e, err
}

// ListQuestions returns the questions of an exam in creation order.
func (s *Store) ListQuestions(ctx context.Context, examID int64) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, exam_id, question_text, question_type, option_a, option_b, option_c, option_d, correct_answer, answer_guide
		 FROM questions WHERE exam_id = ? ORDER BY id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var (
			q     model.Question
			qType string
			row   questionRow
		)
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Text, &qType, &row.a, &row.b, &row.c, &row.d, &row.correct, &row.guide); err != nil {
			return nil, err
		}
		q.Body = row.body(model.QuestionType(qType))
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// HasBestScore reports whether the student already holds a best score for the exam.
func (s *Store) HasBestScore(ctx context.Context, studentID, examID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM student_best_scores WHERE student_id = ? AND exam_id = ?)`,
		studentID, examID,
	).Scan(&exists)
	return exists, err
}

// GetBestScore returns the student's best score for an exam, or nil if none exists.
func (s *Store) GetBestScore(ctx context.Context, studentID, examID int64) (*model.StudentBestScore, error) {
	var b model.StudentBestScore
	err := s.db.QueryRowContext(ctx,
		`SELECT id, student_id, exam_id, percentage, created_at
		 FROM student_best_scores WHERE student_id = ? AND exam_id = ?`, studentID, examID,
	).Scan(&b.ID, &b.StudentID, &b.ExamID, &b.Percentage, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// RecordAttempt inserts the best score and the answer rows of one graded attempt.
// The best score goes first so that a concurrent duplicate attempt fails on the
// (student_id, exam_id) constraint before any answer is written; that failure is
// reported as model.ErrAlreadyAttempted. Answer rows that fail to insert are
// logged and counted but do not abort the attempt.
func (s *Store) RecordAttempt(ctx context.Context, best model.StudentBestScore, answers []model.StudentAnswer) (failed int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if best.CreatedAt.IsZero() {
		best.CreatedAt = time.Now()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO student_best_scores (student_id, exam_id, percentage, created_at) VALUES (?, ?, ?, ?)`,
		best.StudentID, best.ExamID, best.Percentage, best.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, model.ErrAlreadyAttempted
		}
		return 0, fmt.Errorf("insert best score: %w", err)
	}

	for _, a := range answers {
		if a.CreatedAt.IsZero() {
			a.CreatedAt = best.CreatedAt
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO student_answers (student_id, exam_id, question_id, selected, correct, points, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			best.StudentID, best.ExamID, a.QuestionID, a.Selected, a.Correct, a.Points, a.CreatedAt,
		)
		if err != nil {
			slog.Error("failed to store student answer",
				"student_id", best.StudentID, "exam_id", best.ExamID, "question_id", a.QuestionID, "error", err)
			failed++
		}
	}

	return failed, tx.Commit()
}

// ListAnswers returns a student's answers for an exam.
func (s *Store) ListAnswers(ctx context.Context, studentID, examID int64) ([]model.StudentAnswer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, student_id, exam_id, question_id, selected, correct, points, created_at
		 FROM student_answers WHERE student_id = ? AND exam_id = ? ORDER BY id`, studentID, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var answers []model.StudentAnswer
	for rows.Next() {
		var a model.StudentAnswer
		if err := rows.Scan(&a.ID, &a.StudentID, &a.ExamID, &a.QuestionID, &a.Selected, &a.Correct, &a.Points, &a.CreatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// ExamCount returns the number of stored exams.
func (s *Store) ExamCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exams`).Scan(&count)
	return count, err
}

type questionRow struct {
	a, b, c, d sql.NullString
	correct    string
	guide      sql.NullString
}

func toQuestionRow(q model.Question) questionRow {
	var r questionRow
	switch b := q.Body.(type) {
	case model.MultipleChoice:
		r.a = sql.NullString{String: b.Options[0], Valid: true}
		r.b = sql.NullString{String: b.Options[1], Valid: true}
		r.c = sql.NullString{String: b.Options[2], Valid: true}
		r.d = sql.NullString{String: b.Options[3], Valid: true}
		r.correct = string(b.Correct)
	case model.Subjective:
		r.correct = model.SubjectiveMarker
		r.guide = sql.NullString{String: b.AnswerGuide, Valid: true}
	}
	return r
}

func (r questionRow) body(t model.QuestionType) model.QuestionBody {
	if t == model.TypeSubjective {
		return model.Subjective{AnswerGuide: r.guide.String}
	}
	return model.MultipleChoice{
		Options: [4]string{r.a.String, r.b.String, r.c.String, r.d.String},
		Correct: model.Letter(r.correct),
	}
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE")
}
