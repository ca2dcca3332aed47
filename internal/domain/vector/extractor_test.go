package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/classlens/classlens/internal/domain/activity"
	"github.com/classlens/classlens/internal/domain/dimension"
)

func questionCatalog() *dimension.Catalog {
	return dimension.NewCatalog([]dimension.Dimension{
		{Key: dimension.QuestionKey("u1", "l1", "q1")},
	})
}

func questionLog(answers ...activity.Submission) *activity.Log {
	return &activity.Log{
		StudentID: "student-1",
		Records: []activity.Record{
			{UnitID: "u1", LessonID: "l1", Submissions: answers},
		},
	}
}

func TestExtract_QuestionLatestTimestampWins(t *testing.T) {
	log := questionLog(
		activity.Submission{Timestamp: 5, Answers: []activity.Answer{
			{QuestionID: "q1", WeightedScore: 0.6},
			{QuestionID: "q1", WeightedScore: 0.8},
		}},
		activity.Submission{Timestamp: 9, Answers: []activity.Answer{
			{QuestionID: "q1", WeightedScore: 1.0},
		}},
	)

	v := NewExtractor(questionCatalog()).Extract(log)
	assert.Equal(t, 1.0, v.Value(dimension.QuestionKey("u1", "l1", "q1")))
}

func TestExtract_QuestionTiedTimestampsAveraged(t *testing.T) {
	log := questionLog(
		activity.Submission{Timestamp: 9, Answers: []activity.Answer{
			{QuestionID: "q1", WeightedScore: 0.6},
			{QuestionID: "q1", WeightedScore: 1.0},
		}},
	)

	v := NewExtractor(questionCatalog()).Extract(log)
	assert.InDelta(t, 0.8, v.Value(dimension.QuestionKey("u1", "l1", "q1")), 1e-9)
}

func TestExtract_QuestionNoAnswersScoresZero(t *testing.T) {
	v := NewExtractor(questionCatalog()).Extract(questionLog())
	assert.Equal(t, 0.0, v.Value(dimension.QuestionKey("u1", "l1", "q1")))
}

func TestExtract_QuestionOrderOfSubmissionsIrrelevant(t *testing.T) {
	log := questionLog(
		activity.Submission{Timestamp: 9, Answers: []activity.Answer{
			{QuestionID: "q1", WeightedScore: 1.0},
		}},
		activity.Submission{Timestamp: 5, Answers: []activity.Answer{
			{QuestionID: "q1", WeightedScore: 0.6},
		}},
	)

	v := NewExtractor(questionCatalog()).Extract(log)
	assert.Equal(t, 1.0, v.Value(dimension.QuestionKey("u1", "l1", "q1")))
}

func TestExtract_LessonLastScore(t *testing.T) {
	catalog := dimension.NewCatalog([]dimension.Dimension{
		{Key: dimension.LessonKey("l1")},
		{Key: dimension.LessonKey("l2")},
	})
	log := &activity.Log{
		StudentID: "student-1",
		Records: []activity.Record{
			{UnitID: "u1", LessonID: "l1", LastScore: 0.75, HasLastScore: true},
		},
	}

	v := NewExtractor(catalog).Extract(log)
	assert.Equal(t, 0.75, v.Value(dimension.LessonKey("l1")))
	assert.Equal(t, 0.0, v.Value(dimension.LessonKey("l2")), "lesson without a record scores 0")
}

func TestExtract_UnitAveragesOverScoredLessons(t *testing.T) {
	catalog := dimension.NewCatalog([]dimension.Dimension{
		{Key: dimension.UnitKey("u1"), ScoredLessons: 2},
	})
	log := &activity.Log{
		StudentID: "student-1",
		Records: []activity.Record{
			{UnitID: "u1", LessonID: "l1", LastScore: 1.0, HasLastScore: true},
			{UnitID: "u1", LessonID: "l2", LastScore: 0.5, HasLastScore: true},
		},
	}

	v := NewExtractor(catalog).Extract(log)
	assert.InDelta(t, 0.75, v.Value(dimension.UnitKey("u1")), 1e-9)
}

func TestExtract_UnitWithoutScoredLessonsStandsAlone(t *testing.T) {
	catalog := dimension.NewCatalog([]dimension.Dimension{
		{Key: dimension.UnitKey("a1")},
	})
	log := &activity.Log{
		StudentID: "student-1",
		Records: []activity.Record{
			{UnitID: "a1", LastScore: 0.9, HasLastScore: true},
		},
	}

	v := NewExtractor(catalog).Extract(log)
	assert.Equal(t, 0.9, v.Value(dimension.UnitKey("a1")), "divisor clamps to 1 for assessments")
}

func TestExtract_EmptyLogYieldsZeros(t *testing.T) {
	catalog := dimension.NewCatalog([]dimension.Dimension{
		{Key: dimension.UnitKey("u1")},
		{Key: dimension.LessonKey("l1")},
		{Key: dimension.QuestionKey("u1", "l1", "q1")},
	})

	v := NewExtractor(catalog).Extract(nil)
	assert.Equal(t, 3, v.Len())
	for key, value := range v.Values {
		assert.Equal(t, 0.0, value, key.String())
	}
}

func TestExtract_Deterministic(t *testing.T) {
	catalog := dimension.NewCatalog([]dimension.Dimension{
		{Key: dimension.UnitKey("u1"), ScoredLessons: 1},
		{Key: dimension.LessonKey("l1")},
		{Key: dimension.QuestionKey("u1", "l1", "q1")},
	})
	log := &activity.Log{
		StudentID: "student-1",
		Records: []activity.Record{
			{
				UnitID:       "u1",
				LessonID:     "l1",
				LastScore:    0.5,
				HasLastScore: true,
				Submissions: []activity.Submission{
					{Timestamp: 3, Answers: []activity.Answer{{QuestionID: "q1", WeightedScore: 0.4}}},
				},
			},
		},
	}

	extractor := NewExtractor(catalog)
	first := extractor.Extract(log)
	second := extractor.Extract(log)
	assert.Equal(t, first.Values, second.Values)
}
