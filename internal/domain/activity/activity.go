// Package activity contains the raw per-student activity records consumed
// by the vector extractor: unit activity entries with nested submissions
// and per-question answers. The records arrive already decoded from the
// course content service; this package does not deal with their storage
// or wire format.
package activity

import (
	"context"
	"errors"
)

// Domain errors for activity package.
var (
	ErrInvalidStudentID = errors.New("activity: invalid student ID")
	ErrStudentNotFound  = errors.New("activity: no activity data for student")
)

// StudentID represents a unique identifier for a student.
type StudentID string

// IsValid checks if the student ID is valid.
func (s StudentID) IsValid() bool {
	return s != ""
}

// String returns the string representation of StudentID.
func (s StudentID) String() string {
	return string(s)
}

// Answer is one graded answer to a question inside a submission.
type Answer struct {
	QuestionID string

	// WeightedScore is the graded score of the answer. Zero scores carry
	// no information for question scoring and are ignored by the
	// extractor, matching the aggregate data the records come from.
	WeightedScore float64

	// Timestamp is copied from the owning submission so answers can be
	// compared without walking back up the record tree.
	Timestamp int64
}

// Submission is one graded submission with its answers.
type Submission struct {
	Timestamp int64
	Answers   []Answer
}

// Record is one unit activity entry of a student's log. A record may
// carry a unit identity, a lesson identity, or both, plus the last known
// score and nested submissions.
type Record struct {
	// UnitID is the unit this record belongs to, if known.
	UnitID string

	// LessonID is the lesson this record belongs to, if known.
	LessonID string

	// LastScore is the last known score for the unit or lesson.
	LastScore float64

	// HasLastScore reports whether LastScore was present in the raw data.
	// Records without a score never contribute to unit or lesson values.
	HasLastScore bool

	Submissions []Submission
}

// Log is the full decoded activity log of one student.
type Log struct {
	StudentID StudentID
	Records   []Record
}

// IsEmpty reports whether the log carries no records.
func (l Log) IsEmpty() bool {
	return len(l.Records) == 0
}

// Source supplies decoded student activity logs.
// Implemented by the infrastructure layer.
type Source interface {
	// ListStudents returns the IDs of every student with activity data
	// for the course.
	ListStudents(ctx context.Context, courseID string) ([]StudentID, error)

	// GetLog returns the decoded activity log for one student.
	// Returns ErrStudentNotFound when the student has no data.
	GetLog(ctx context.Context, courseID string, studentID StudentID) (*Log, error)
}
