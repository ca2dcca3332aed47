package courseapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/classlens/classlens/internal/domain/course"
)

func TestStructureDTO_Parsing(t *testing.T) {
	jsonData := `{
    "course_id": "intro-to-data",
    "title": "Introduction to Data Science",
    "units": [
        {
            "id": "u1",
            "title": "Foundations",
            "type": "unit",
            "contents": [
                {
                    "lesson_id": "l1",
                    "title": "What is data?",
                    "tallied": true,
                    "questions": [
                        {"id": "q-mean", "description": "Compute the mean"},
                        {"id": "q-median", "description": "Compute the median"}
                    ]
                },
                {
                    "lesson_id": "l2",
                    "title": "Reading material",
                    "tallied": false
                },
                {
                    "assessment_id": "a-post",
                    "title": "Post assessment",
                    "questions": [
                        {"id": "q-mean"}
                    ]
                }
            ]
        },
        {
            "id": "a-final",
            "title": "Final exam",
            "type": "assessment"
        }
    ]
}`

	var structure StructureDTO
	err := json.Unmarshal([]byte(jsonData), &structure)
	assert.NoError(t, err)

	assert.Equal(t, "intro-to-data", structure.CourseID)
	assert.Len(t, structure.Units, 2)

	unit := structure.Units[0]
	assert.Equal(t, "u1", unit.ID)
	assert.Len(t, unit.Contents, 3)

	lesson := unit.Contents[0]
	assert.Equal(t, "l1", lesson.LessonID)
	assert.True(t, lesson.Tallied)
	assert.Len(t, lesson.Questions, 2)

	ungraded := unit.Contents[1]
	assert.False(t, ungraded.Tallied)
	assert.Empty(t, ungraded.Questions)

	post := unit.Contents[2]
	assert.Equal(t, "a-post", post.AssessmentID)
	assert.Empty(t, post.LessonID)
}

func TestActivityLogDTO_Parsing(t *testing.T) {
	jsonData := `{
    "student_id": "student-42",
    "records": [
        {
            "unit_id": "u1",
            "lesson_id": "l1",
            "last_score": 0.75,
            "submission": [
                {
                    "timestamp": 1700000000,
                    "answers": [
                        {"question_id": "q-mean", "weighted_score": 1.0},
                        {"question_id": "q-median", "weighted_score": 0.5}
                    ]
                }
            ]
        },
        {
            "unit_id": "u2"
        }
    ]
}`

	var log ActivityLogDTO
	err := json.Unmarshal([]byte(jsonData), &log)
	assert.NoError(t, err)

	assert.Equal(t, "student-42", log.StudentID)
	assert.Len(t, log.Records, 2)

	rec := log.Records[0]
	assert.NotNil(t, rec.LastScore)
	assert.Equal(t, 0.75, *rec.LastScore)
	assert.Len(t, rec.Submissions, 1)
	assert.Equal(t, int64(1700000000), rec.Submissions[0].Timestamp)
	assert.Len(t, rec.Submissions[0].Answers, 2)

	// Missing last_score stays nil, not zero.
	assert.Nil(t, log.Records[1].LastScore)
}

func TestMapper_StructureFromDTO(t *testing.T) {
	dto := &StructureDTO{
		CourseID: "c1",
		Units: []UnitDTO{
			{
				ID:    "u1",
				Title: "Unit 1",
				Contents: []ContentItemDTO{
					{
						LessonID: "l1",
						Title:    "Lesson 1",
						Tallied:  true,
						Questions: []QuestionDTO{
							{ID: "q1", Description: "Question 1"},
						},
					},
					{
						AssessmentID: "a1",
						Title:        "Pre assessment",
					},
				},
			},
		},
	}

	mapper := NewMapper()
	structure := mapper.StructureFromDTO(dto)

	assert.Equal(t, "c1", structure.CourseID)
	assert.Len(t, structure.Units, 1)

	unit := structure.Units[0]
	assert.Equal(t, course.UnitID("u1"), unit.ID)
	assert.Len(t, unit.Contents, 2)
	assert.True(t, unit.Contents[0].IsLesson())
	assert.True(t, unit.Contents[1].IsAssessment())
	assert.Equal(t, course.QuestionID("q1"), unit.Contents[0].Questions[0].ID)
}

func TestMapper_LogFromDTO(t *testing.T) {
	score := 0.6
	dto := &ActivityLogDTO{
		StudentID: "s1",
		Records: []ActivityRecordDTO{
			{
				UnitID:    "u1",
				LessonID:  "l1",
				LastScore: &score,
				Submissions: []SubmissionDTO{
					{
						Timestamp: 500,
						Answers: []AnswerDTO{
							{QuestionID: "q1", WeightedScore: 1.0},
						},
					},
				},
			},
			{
				UnitID: "u2",
			},
		},
	}

	mapper := NewMapper()
	log := mapper.LogFromDTO(dto)

	assert.Equal(t, "s1", log.StudentID.String())
	assert.Len(t, log.Records, 2)

	rec := log.Records[0]
	assert.True(t, rec.HasLastScore)
	assert.Equal(t, 0.6, rec.LastScore)

	// The submission timestamp is copied down to the answer.
	assert.Equal(t, int64(500), rec.Submissions[0].Answers[0].Timestamp)

	assert.False(t, log.Records[1].HasLastScore)
}

func TestMapper_StudentIDsFromDTO(t *testing.T) {
	mapper := NewMapper()
	ids := mapper.StudentIDsFromDTO([]StudentDTO{
		{ID: "s1"},
		{ID: ""},
		{ID: "s2"},
	})

	assert.Len(t, ids, 2)
	assert.Equal(t, "s1", ids[0].String())
	assert.Equal(t, "s2", ids[1].String())
}
