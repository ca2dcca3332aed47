// Package courseapi implements the course platform API client.
// It fetches the course structure and per-student activity logs that
// feed the classification pipeline.
package courseapi

import "time"

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// APIResponse is the standard response wrapper of the platform API.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// APIErrorDTO is the error payload of a failed request.
type APIErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	if e.Details != "" {
		return e.Code + ": " + e.Message + " (" + e.Details + ")"
	}
	return e.Code + ": " + e.Message
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE STRUCTURE DTOs
// ══════════════════════════════════════════════════════════════════════════════

// StructureDTO is the full course structure as served by the platform.
type StructureDTO struct {
	CourseID string    `json:"course_id"`
	Title    string    `json:"title"`
	Units    []UnitDTO `json:"units"`
}

// UnitDTO is one top-level unit or standalone assessment.
type UnitDTO struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Type     string           `json:"type"` // "unit" or "assessment"
	Contents []ContentItemDTO `json:"contents"`
}

// ContentItemDTO is one entry in a unit's ordered contents. Lessons
// carry a lesson_id; embedded pre/post assessments carry the id of the
// assessment unit they wrap.
type ContentItemDTO struct {
	LessonID     string        `json:"lesson_id,omitempty"`
	AssessmentID string        `json:"assessment_id,omitempty"`
	Title        string        `json:"title"`
	Tallied      bool          `json:"tallied"`
	Questions    []QuestionDTO `json:"questions,omitempty"`
}

// QuestionDTO is a question placed inside a lesson or assessment.
type QuestionDTO struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT AND ACTIVITY DTOs
// ══════════════════════════════════════════════════════════════════════════════

// StudentDTO identifies one enrolled student.
type StudentDTO struct {
	ID         string     `json:"id"`
	Email      string     `json:"email,omitempty"`
	EnrolledAt *time.Time `json:"enrolled_at,omitempty"`
}

// ActivityLogDTO is the aggregated activity log of one student: the
// last known scores and graded submissions per unit or lesson.
type ActivityLogDTO struct {
	StudentID string              `json:"student_id"`
	Records   []ActivityRecordDTO `json:"records"`
}

// ActivityRecordDTO is one unit or lesson entry of the activity log.
// last_score is a pointer: absence and zero mean different things, a
// record without it never contributes a unit or lesson value.
type ActivityRecordDTO struct {
	UnitID      string          `json:"unit_id,omitempty"`
	LessonID    string          `json:"lesson_id,omitempty"`
	LastScore   *float64        `json:"last_score,omitempty"`
	Submissions []SubmissionDTO `json:"submission,omitempty"`
}

// SubmissionDTO is one graded submission.
type SubmissionDTO struct {
	Timestamp int64       `json:"timestamp"`
	Answers   []AnswerDTO `json:"answers"`
}

// AnswerDTO is one graded answer within a submission.
type AnswerDTO struct {
	QuestionID    string  `json:"question_id"`
	WeightedScore float64 `json:"weighted_score"`
}
