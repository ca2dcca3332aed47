package dimension

import (
	"github.com/classlens/classlens/internal/domain/course"
)

// Catalog is the ordered list of all classifiable dimensions of a course,
// derived from the course structure. It is built once per classification
// run and shared read-only between the extractor and the classifier.
type Catalog struct {
	dims  []Dimension
	index map[Key]int
}

// NewCatalog builds a catalog from an ordered dimension list.
func NewCatalog(dims []Dimension) *Catalog {
	c := &Catalog{
		dims:  dims,
		index: make(map[Key]int, len(dims)),
	}
	for i, d := range dims {
		if _, ok := c.index[d.Key]; !ok {
			c.index[d.Key] = i
		}
	}
	return c
}

// Dimensions returns the ordered dimension list.
func (c *Catalog) Dimensions() []Dimension {
	return c.dims
}

// Len returns the number of dimensions in the catalog.
func (c *Catalog) Len() int {
	return len(c.dims)
}

// Lookup returns the dimension with the given key.
func (c *Catalog) Lookup(key Key) (Dimension, bool) {
	i, ok := c.index[key]
	if !ok {
		return Dimension{}, false
	}
	return c.dims[i], true
}

// BuildCatalog enumerates every classifiable dimension of the course.
//
// For each unit a unit dimension is emitted, followed by the dimensions of
// its contents in course order: a scored lesson becomes a lesson dimension,
// an embedded pre/post assessment becomes a unit dimension, and every
// question inside a scored item becomes a question dimension keyed by its
// placement (owning unit or assessment, lesson if any, question). Scored
// lessons and embedded assessments both count toward the owning unit's
// ScoredLessons, attached to the unit dimension after its contents are
// processed. Untallied lessons and their questions are skipped entirely.
// Repeated uses of one question inside the same unit and lesson collapse
// into a single dimension.
//
// A malformed structure is not an error; it simply yields fewer dimensions.
func BuildCatalog(s *course.Structure) *Catalog {
	if s == nil {
		return NewCatalog(nil)
	}

	dims := make([]Dimension, 0, len(s.Units)*4)
	seenQuestions := make(map[Key]bool)

	for _, unit := range s.Units {
		if !unit.ID.IsValid() {
			continue
		}

		unitIdx := len(dims)
		dims = append(dims, Dimension{
			Key:  UnitKey(unit.ID.String()),
			Name: unit.Title,
		})

		scoredLessons := 0
		for _, item := range unit.Contents {
			// An ungraded lesson is not a dimension and neither are its
			// questions.
			if item.IsLesson() && !item.Tallied {
				continue
			}

			switch {
			case item.IsLesson():
				dims = append(dims, Dimension{
					Key:  LessonKey(item.LessonID.String()),
					Name: item.Title,
				})
				scoredLessons++
			case item.IsAssessment():
				dims = append(dims, Dimension{
					Key:  UnitKey(item.AssessmentID.String()),
					Name: item.Title,
				})
				scoredLessons++
			}

			for _, q := range item.Questions {
				if !q.ID.IsValid() {
					continue
				}
				var key Key
				if item.IsAssessment() {
					key = QuestionKey(item.AssessmentID.String(), "", q.ID.String())
				} else {
					key = QuestionKey(unit.ID.String(), item.LessonID.String(), q.ID.String())
				}
				if seenQuestions[key] {
					continue
				}
				seenQuestions[key] = true
				dims = append(dims, Dimension{
					Key:  key,
					Name: q.Description,
				})
			}
		}

		dims[unitIdx].ScoredLessons = scoredLessons
	}

	return NewCatalog(dims)
}
