// Package dimension defines the classifiable dimensions of a course
// (units, lessons and question placements) and builds the dimension
// catalog from the course structure. The catalog is derived fresh for
// every classification run and is read-only afterwards.
package dimension

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKey is returned when a textual dimension key cannot be parsed.
var ErrInvalidKey = errors.New("dimension: invalid dimension key")

// Type is the closed set of dimension types.
type Type string

const (
	// TypeUnit marks a unit or standalone assessment dimension.
	TypeUnit Type = "unit"
	// TypeLesson marks a scored lesson dimension.
	TypeLesson Type = "lesson"
	// TypeQuestion marks a question placement dimension.
	TypeQuestion Type = "question"
)

// IsValid checks if the type is one of the known dimension types.
func (t Type) IsValid() bool {
	switch t {
	case TypeUnit, TypeLesson, TypeQuestion:
		return true
	}
	return false
}

// String returns the string representation of Type.
func (t Type) String() string {
	return string(t)
}

// Key uniquely identifies a dimension. It is comparable and used as a
// map key throughout the pipeline.
//
// For unit and lesson dimensions only Type and ID are set. For question
// dimensions the placement is part of the identity: the same question
// content reused under different units or lessons classifies
// independently, so UnitID and LessonID qualify the question ID.
// A question placed directly in an assessment has UnitID set to the
// assessment ID and an empty LessonID.
type Key struct {
	Type     Type
	ID       string
	UnitID   string
	LessonID string
}

// UnitKey returns the key for a unit or assessment dimension.
func UnitKey(unitID string) Key {
	return Key{Type: TypeUnit, ID: unitID}
}

// LessonKey returns the key for a lesson dimension.
func LessonKey(lessonID string) Key {
	return Key{Type: TypeLesson, ID: lessonID}
}

// QuestionKey returns the key for a question placement dimension.
// lessonID is empty for questions placed directly in an assessment.
func QuestionKey(unitID, lessonID, questionID string) Key {
	return Key{
		Type:     TypeQuestion,
		ID:       questionID,
		UnitID:   unitID,
		LessonID: lessonID,
	}
}

// IsValid checks if the key identifies a dimension.
func (k Key) IsValid() bool {
	if !k.Type.IsValid() || k.ID == "" {
		return false
	}
	if k.Type == TypeQuestion && k.UnitID == "" {
		return false
	}
	return true
}

// String returns a stable textual form of the key, used for persistence
// and as a grouping key. Question keys encode the full placement triple.
func (k Key) String() string {
	if k.Type == TypeQuestion {
		return fmt.Sprintf("%s:%s:%s:%s", k.Type, k.UnitID, k.LessonID, k.ID)
	}
	return fmt.Sprintf("%s:%s", k.Type, k.ID)
}

// ParseKey parses the textual form produced by Key.String.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, ":")
	switch {
	case len(parts) == 2:
		k := Key{Type: Type(parts[0]), ID: parts[1]}
		if !k.IsValid() || k.Type == TypeQuestion {
			return Key{}, ErrInvalidKey
		}
		return k, nil
	case len(parts) == 4 && Type(parts[0]) == TypeQuestion:
		k := QuestionKey(parts[1], parts[2], parts[3])
		if !k.IsValid() {
			return Key{}, ErrInvalidKey
		}
		return k, nil
	}
	return Key{}, ErrInvalidKey
}

// Dimension is one classifiable axis of the course.
type Dimension struct {
	Key Key

	// Name is the display title of the unit, lesson or question. It is
	// shown in the cluster editor and statistics report but never stored
	// with cluster definitions.
	Name string

	// ScoredLessons is set on unit dimensions only: the number of scored
	// lessons (including embedded assessments) inside the unit, used to
	// average the unit score. Zero means the unit scores by itself, as a
	// plain assessment does; the extractor clamps the divisor to 1.
	ScoredLessons int
}
