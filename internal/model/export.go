package model

import "time"

// ResultsExport is the top-level JSON structure for exam result export.
type ResultsExport struct {
	ExportedAt    time.Time       `json:"exported_at"`
	PromptVariant string          `json:"prompt_variant"`
	Results       []StudentResult `json:"results"`
}

// StudentResult holds one student's graded attempt for export.
type StudentResult struct {
	StudentID  int64        `json:"student_id"`
	ExamID     int64        `json:"exam_id"`
	Percentage float64      `json:"percentage"`
	GradedAt   time.Time    `json:"graded_at"`
	Summary    *ExamSummary `json:"summary,omitempty"`
}
