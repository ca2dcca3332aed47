// Package course contains the read-only course structure consumed by the
// classification pipeline: ordered units with their lessons, embedded
// assessments and questions. The structure is supplied by an external
// course content service and is never mutated here.
package course

import (
	"context"
)

// UnitID identifies a unit or a standalone assessment.
type UnitID string

// IsValid checks if the unit ID is valid.
func (u UnitID) IsValid() bool {
	return u != ""
}

// String returns the string representation of UnitID.
func (u UnitID) String() string {
	return string(u)
}

// LessonID identifies a lesson within a unit.
type LessonID string

// IsValid checks if the lesson ID is valid.
func (l LessonID) IsValid() bool {
	return l != ""
}

// String returns the string representation of LessonID.
func (l LessonID) String() string {
	return string(l)
}

// QuestionID identifies a question by content. The same question may be
// placed under several units and lessons; placement identity lives in
// dimension.Key, not here.
type QuestionID string

// IsValid checks if the question ID is valid.
func (q QuestionID) IsValid() bool {
	return q != ""
}

// String returns the string representation of QuestionID.
func (q QuestionID) String() string {
	return string(q)
}

// Question is a single question placed inside a lesson or assessment.
type Question struct {
	ID          QuestionID
	Description string
}

// ContentItem is one entry in a unit's ordered contents: either a lesson
// (LessonID set) or an embedded pre/post assessment (AssessmentID set).
type ContentItem struct {
	// LessonID is set when the item is a lesson.
	LessonID LessonID

	// AssessmentID is set when the item is a pre- or post-assessment
	// attached to the unit. Such an item carries the assessment's own
	// unit ID and no lesson ID.
	AssessmentID UnitID

	// Title of the lesson or assessment.
	Title string

	// Tallied reports whether the lesson is scored. Untallied lessons and
	// their questions never become dimensions.
	Tallied bool

	// Questions directly contained in this item.
	Questions []Question
}

// IsLesson reports whether the item is a lesson.
func (c ContentItem) IsLesson() bool {
	return c.LessonID.IsValid() && c.Title != ""
}

// IsAssessment reports whether the item is an embedded assessment.
func (c ContentItem) IsAssessment() bool {
	return c.AssessmentID.IsValid() && c.Title != ""
}

// Unit is a top-level course unit or standalone assessment.
type Unit struct {
	ID       UnitID
	Title    string
	Contents []ContentItem
}

// Structure is the ordered course structure for one course.
type Structure struct {
	CourseID string
	Units    []Unit
}

// IsEmpty reports whether the structure contains no units.
func (s Structure) IsEmpty() bool {
	return len(s.Units) == 0
}

// Provider supplies the course structure from the course content service.
// Implemented by the infrastructure layer.
type Provider interface {
	// GetStructure returns the ordered course structure for a course.
	GetStructure(ctx context.Context, courseID string) (*Structure, error)
}
