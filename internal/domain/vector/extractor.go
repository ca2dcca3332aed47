package vector

import (
	"github.com/classlens/classlens/internal/domain/activity"
	"github.com/classlens/classlens/internal/domain/dimension"
)

// Extractor computes student vectors over a fixed dimension catalog.
type Extractor struct {
	catalog *dimension.Catalog
}

// NewExtractor creates an Extractor for the given catalog.
func NewExtractor(catalog *dimension.Catalog) *Extractor {
	return &Extractor{catalog: catalog}
}

// Extract computes the vector for one student's activity log.
//
// The log is first inverted into a per-dimension index: every record is
// relevant to its own unit and lesson dimensions, and every answer inside
// its submissions is relevant to the question dimension keyed by the
// record's unit and lesson plus the answer's question ID. Each catalog
// dimension is then scored from its relevant slice of the index.
//
// A nil or empty log is not an error; it yields a vector of zeros.
func (e *Extractor) Extract(log *activity.Log) *Vector {
	idx := buildIndex(log)

	v := &Vector{
		Values: make(map[dimension.Key]float64, e.catalog.Len()),
	}
	if log != nil {
		v.StudentID = log.StudentID
	}

	for _, dim := range e.catalog.Dimensions() {
		switch dim.Key.Type {
		case dimension.TypeQuestion:
			v.Values[dim.Key] = questionScore(idx.answers[dim.Key])
		case dimension.TypeLesson:
			v.Values[dim.Key] = lessonScore(idx.records[dim.Key], dim.Key.ID)
		case dimension.TypeUnit:
			v.Values[dim.Key] = unitScore(idx.records[dim.Key], dim)
		}
	}
	return v
}

// index maps each dimension key to the raw data relevant to it.
type index struct {
	records map[dimension.Key][]activity.Record
	answers map[dimension.Key][]activity.Answer
}

func buildIndex(log *activity.Log) index {
	idx := index{
		records: make(map[dimension.Key][]activity.Record),
		answers: make(map[dimension.Key][]activity.Answer),
	}
	if log == nil {
		return idx
	}

	for _, rec := range log.Records {
		if rec.UnitID != "" {
			key := dimension.UnitKey(rec.UnitID)
			idx.records[key] = append(idx.records[key], rec)
		}
		if rec.LessonID != "" {
			key := dimension.LessonKey(rec.LessonID)
			idx.records[key] = append(idx.records[key], rec)
		}
		for _, sub := range rec.Submissions {
			for _, ans := range sub.Answers {
				if ans.QuestionID == "" {
					continue
				}
				key := dimension.QuestionKey(rec.UnitID, rec.LessonID, ans.QuestionID)
				ans.Timestamp = sub.Timestamp
				idx.answers[key] = append(idx.answers[key], ans)
			}
		}
	}
	return idx
}

// questionScore is the last weighted score obtained for the question.
// When the question appears more than once at the latest submission
// timestamp, the tied scores are averaged. Answers without a weighted
// score carry no information and are skipped. No qualifying answer means
// a score of 0.
func questionScore(answers []activity.Answer) float64 {
	var lastScores []float64
	var lastTimestamp int64

	for _, ans := range answers {
		if ans.WeightedScore == 0 {
			continue
		}
		switch {
		case ans.Timestamp > lastTimestamp || lastScores == nil:
			lastScores = []float64{ans.WeightedScore}
			lastTimestamp = ans.Timestamp
		case ans.Timestamp == lastTimestamp:
			lastScores = append(lastScores, ans.WeightedScore)
		}
	}
	if len(lastScores) == 0 {
		return 0
	}

	var sum float64
	for _, s := range lastScores {
		sum += s
	}
	return sum / float64(len(lastScores))
}

// lessonScore is the last score of the one relevant record whose lesson
// matches, or 0 when none is found.
func lessonScore(records []activity.Record, lessonID string) float64 {
	for _, rec := range records {
		if rec.LessonID == lessonID && rec.HasLastScore {
			return rec.LastScore
		}
	}
	return 0
}

// unitScore is the sum of last scores across the unit's relevant records
// divided by the unit's scored-lesson count. A unit without scored
// lessons (a plain assessment) divides by 1, so its own score stands
// alone.
func unitScore(records []activity.Record, dim dimension.Dimension) float64 {
	scoredLessons := dim.ScoredLessons
	if scoredLessons < 1 {
		scoredLessons = 1
	}

	var score float64
	for _, rec := range records {
		if rec.UnitID == dim.Key.ID && rec.HasLastScore {
			score += rec.LastScore
		}
	}
	return score / float64(scoredLessons)
}
