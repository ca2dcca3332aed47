package courseapi

import (
	"github.com/classlens/classlens/internal/domain/activity"
	"github.com/classlens/classlens/internal/domain/course"
)

// ══════════════════════════════════════════════════════════════════════════════
// DTO -> DOMAIN MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// Mapper converts API DTOs to domain types.
type Mapper struct{}

// NewMapper creates a new Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// StructureFromDTO converts a structure DTO to the domain model.
func (m *Mapper) StructureFromDTO(dto *StructureDTO) *course.Structure {
	if dto == nil {
		return nil
	}

	units := make([]course.Unit, 0, len(dto.Units))
	for _, u := range dto.Units {
		units = append(units, course.Unit{
			ID:       course.UnitID(u.ID),
			Title:    u.Title,
			Contents: m.contentsFromDTO(u.Contents),
		})
	}

	return &course.Structure{
		CourseID: dto.CourseID,
		Units:    units,
	}
}

func (m *Mapper) contentsFromDTO(dtos []ContentItemDTO) []course.ContentItem {
	contents := make([]course.ContentItem, 0, len(dtos))
	for _, c := range dtos {
		questions := make([]course.Question, 0, len(c.Questions))
		for _, q := range c.Questions {
			questions = append(questions, course.Question{
				ID:          course.QuestionID(q.ID),
				Description: q.Description,
			})
		}
		contents = append(contents, course.ContentItem{
			LessonID:     course.LessonID(c.LessonID),
			AssessmentID: course.UnitID(c.AssessmentID),
			Title:        c.Title,
			Tallied:      c.Tallied,
			Questions:    questions,
		})
	}
	return contents
}

// LogFromDTO converts an activity log DTO to the domain model. The
// submission timestamp is copied down to each answer so later scoring
// never walks back up the record tree.
func (m *Mapper) LogFromDTO(dto *ActivityLogDTO) *activity.Log {
	if dto == nil {
		return nil
	}

	records := make([]activity.Record, 0, len(dto.Records))
	for _, r := range dto.Records {
		rec := activity.Record{
			UnitID:   r.UnitID,
			LessonID: r.LessonID,
		}
		if r.LastScore != nil {
			rec.LastScore = *r.LastScore
			rec.HasLastScore = true
		}

		rec.Submissions = make([]activity.Submission, 0, len(r.Submissions))
		for _, s := range r.Submissions {
			answers := make([]activity.Answer, 0, len(s.Answers))
			for _, a := range s.Answers {
				answers = append(answers, activity.Answer{
					QuestionID:    a.QuestionID,
					WeightedScore: a.WeightedScore,
					Timestamp:     s.Timestamp,
				})
			}
			rec.Submissions = append(rec.Submissions, activity.Submission{
				Timestamp: s.Timestamp,
				Answers:   answers,
			})
		}
		records = append(records, rec)
	}

	return &activity.Log{
		StudentID: activity.StudentID(dto.StudentID),
		Records:   records,
	}
}

// StudentIDsFromDTO extracts domain student IDs from a student listing.
func (m *Mapper) StudentIDsFromDTO(dtos []StudentDTO) []activity.StudentID {
	ids := make([]activity.StudentID, 0, len(dtos))
	for _, s := range dtos {
		if s.ID == "" {
			continue
		}
		ids = append(ids, activity.StudentID(s.ID))
	}
	return ids
}
