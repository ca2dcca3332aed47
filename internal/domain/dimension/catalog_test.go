package dimension

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classlens/classlens/internal/domain/course"
)

func sampleStructure() *course.Structure {
	return &course.Structure{
		CourseID: "go-101",
		Units: []course.Unit{
			{
				ID:    "u1",
				Title: "Unit 1",
				Contents: []course.ContentItem{
					{
						LessonID: "l1",
						Title:    "Lesson 1",
						Tallied:  true,
						Questions: []course.Question{
							{ID: "q1", Description: "Question 1"},
							{ID: "q2", Description: "Question 2"},
						},
					},
					{
						LessonID: "l2",
						Title:    "Lesson 2 (ungraded)",
						Tallied:  false,
						Questions: []course.Question{
							{ID: "q3", Description: "Question 3"},
						},
					},
					{
						AssessmentID: "a1",
						Title:        "Post assessment",
						Questions: []course.Question{
							{ID: "q1", Description: "Question 1"},
						},
					},
				},
			},
			{
				ID:       "u2",
				Title:    "Standalone assessment",
				Contents: nil,
			},
		},
	}
}

func TestBuildCatalog_Dimensions(t *testing.T) {
	catalog := BuildCatalog(sampleStructure())

	keys := make([]Key, 0, catalog.Len())
	for _, d := range catalog.Dimensions() {
		keys = append(keys, d.Key)
	}

	assert.Equal(t, []Key{
		UnitKey("u1"),
		LessonKey("l1"),
		QuestionKey("u1", "l1", "q1"),
		QuestionKey("u1", "l1", "q2"),
		UnitKey("a1"),
		QuestionKey("a1", "", "q1"),
		UnitKey("u2"),
	}, keys)
}

func TestBuildCatalog_UngradedLessonExcluded(t *testing.T) {
	catalog := BuildCatalog(sampleStructure())

	_, found := catalog.Lookup(LessonKey("l2"))
	assert.False(t, found, "ungraded lesson must not become a dimension")

	_, found = catalog.Lookup(QuestionKey("u1", "l2", "q3"))
	assert.False(t, found, "questions of an ungraded lesson must not become dimensions")
}

func TestBuildCatalog_ScoredLessonCount(t *testing.T) {
	catalog := BuildCatalog(sampleStructure())

	u1, found := catalog.Lookup(UnitKey("u1"))
	require.True(t, found)
	// Lesson 1 is tallied, the post assessment counts too, lesson 2 is not.
	assert.Equal(t, 2, u1.ScoredLessons)

	u2, found := catalog.Lookup(UnitKey("u2"))
	require.True(t, found)
	assert.Equal(t, 0, u2.ScoredLessons, "a standalone assessment has no scored lessons")
}

func TestBuildCatalog_QuestionReuseAcrossPlacements(t *testing.T) {
	catalog := BuildCatalog(sampleStructure())

	// q1 appears under (u1, l1) and directly in assessment a1: separate
	// placements classify independently.
	_, found := catalog.Lookup(QuestionKey("u1", "l1", "q1"))
	assert.True(t, found)
	_, found = catalog.Lookup(QuestionKey("a1", "", "q1"))
	assert.True(t, found)
}

func TestBuildCatalog_DuplicateQuestionInSamePlacementCollapses(t *testing.T) {
	s := &course.Structure{
		Units: []course.Unit{
			{
				ID:    "u1",
				Title: "Unit 1",
				Contents: []course.ContentItem{
					{
						LessonID: "l1",
						Title:    "Lesson 1",
						Tallied:  true,
						Questions: []course.Question{
							{ID: "q1"},
							{ID: "q1"},
						},
					},
				},
			},
		},
	}

	catalog := BuildCatalog(s)
	assert.Equal(t, 3, catalog.Len(), "unit + lesson + one collapsed question")
}

func TestBuildCatalog_EmptyStructure(t *testing.T) {
	assert.Equal(t, 0, BuildCatalog(nil).Len())
	assert.Equal(t, 0, BuildCatalog(&course.Structure{}).Len())
}

func TestKeyRoundTrip(t *testing.T) {
	tests := []Key{
		UnitKey("u1"),
		LessonKey("l5"),
		QuestionKey("u1", "l1", "q9"),
		QuestionKey("a2", "", "q1"),
	}

	for _, key := range tests {
		parsed, err := ParseKey(key.String())
		require.NoError(t, err, key.String())
		assert.Equal(t, key, parsed)
	}
}

func TestParseKey_Invalid(t *testing.T) {
	for _, s := range []string{"", "unit", "bogus:x", "question:q1", "unit:a:b:c"} {
		_, err := ParseKey(s)
		assert.Error(t, err, s)
	}
}
