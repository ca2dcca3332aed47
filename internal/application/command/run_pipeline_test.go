package command

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classlens/classlens/internal/domain/activity"
	"github.com/classlens/classlens/internal/domain/classification"
	"github.com/classlens/classlens/internal/domain/cluster"
	"github.com/classlens/classlens/internal/domain/course"
	"github.com/classlens/classlens/internal/domain/dimension"
	"github.com/classlens/classlens/internal/domain/shared"
	"github.com/classlens/classlens/internal/domain/stats"
	"github.com/classlens/classlens/internal/domain/vector"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY FAKES
// ══════════════════════════════════════════════════════════════════════════════

type fakeCourseProvider struct {
	structure *course.Structure
	err       error
}

func (f *fakeCourseProvider) GetStructure(_ context.Context, _ string) (*course.Structure, error) {
	return f.structure, f.err
}

type fakeActivitySource struct {
	students []activity.StudentID
	logs     map[activity.StudentID]*activity.Log
	errs     map[activity.StudentID]error
	listErr  error
}

func (f *fakeActivitySource) ListStudents(_ context.Context, _ string) ([]activity.StudentID, error) {
	return f.students, f.listErr
}

func (f *fakeActivitySource) GetLog(_ context.Context, _ string, studentID activity.StudentID) (*activity.Log, error) {
	if err, ok := f.errs[studentID]; ok {
		return nil, err
	}
	return f.logs[studentID], nil
}

type fakeClusterRepo struct {
	clusters []*cluster.Cluster
}

func (f *fakeClusterRepo) Save(_ context.Context, _ *cluster.Cluster) error { return nil }
func (f *fakeClusterRepo) GetByID(_ context.Context, _ cluster.ID) (*cluster.Cluster, error) {
	return nil, shared.ErrClusterNotFound
}
func (f *fakeClusterRepo) GetAll(_ context.Context) ([]*cluster.Cluster, error) {
	return f.clusters, nil
}
func (f *fakeClusterRepo) Delete(_ context.Context, _ cluster.ID) error { return nil }

type fakeVectorRepo struct {
	mu      sync.Mutex
	vectors map[activity.StudentID]*vector.Vector
	saveErr map[activity.StudentID]error
}

func newFakeVectorRepo() *fakeVectorRepo {
	return &fakeVectorRepo{
		vectors: make(map[activity.StudentID]*vector.Vector),
		saveErr: make(map[activity.StudentID]error),
	}
}

func (f *fakeVectorRepo) Save(_ context.Context, v *vector.Vector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.saveErr[v.StudentID]; ok {
		return err
	}
	f.vectors[v.StudentID] = v
	return nil
}

func (f *fakeVectorRepo) Get(_ context.Context, studentID activity.StudentID) (*vector.Vector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vectors[studentID]
	if !ok {
		return nil, shared.ErrVectorNotFound
	}
	return v, nil
}

type fakeClassificationRepo struct {
	mu      sync.Mutex
	results map[activity.StudentID]*classification.Result
}

func newFakeClassificationRepo() *fakeClassificationRepo {
	return &fakeClassificationRepo{results: make(map[activity.StudentID]*classification.Result)}
}

func (f *fakeClassificationRepo) Save(_ context.Context, r *classification.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[r.StudentID] = r
	return nil
}

func (f *fakeClassificationRepo) Get(_ context.Context, studentID activity.StudentID) (*classification.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.results[studentID]
	if !ok {
		return nil, shared.ErrClassificationNotFound
	}
	return r, nil
}

type fakeStatsRepo struct {
	mu    sync.Mutex
	saved *stats.Statistics
}

func (f *fakeStatsRepo) Save(_ context.Context, s *stats.Statistics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = s
	return nil
}

func (f *fakeStatsRepo) Get(_ context.Context) (*stats.Statistics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		return nil, shared.ErrStatisticsNotFound
	}
	return f.saved, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURES
// ══════════════════════════════════════════════════════════════════════════════

func testStructure() *course.Structure {
	return &course.Structure{
		CourseID: "course-1",
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
						},
					},
				},
			},
		},
	}
}

func testLog(studentID string, lessonScore float64) *activity.Log {
	return &activity.Log{
		StudentID: activity.StudentID(studentID),
		Records: []activity.Record{
			{
				UnitID:       "u1",
				LessonID:     "l1",
				LastScore:    lessonScore,
				HasLastScore: true,
				Submissions: []activity.Submission{
					{
						Timestamp: 100,
						Answers: []activity.Answer{
							{QuestionID: "q1", WeightedScore: lessonScore, Timestamp: 100},
						},
					},
				},
			},
		},
	}
}

func bound(v float64) *float64 { return &v }

func lowScoreCluster(t *testing.T) *cluster.Cluster {
	t.Helper()
	c, err := cluster.New("low", "Struggling", "", []cluster.Range{
		{Key: dimension.LessonKey("l1"), Low: bound(0), High: bound(0.5)},
	})
	require.NoError(t, err)
	return c
}

func newTestHandler(
	provider course.Provider,
	source activity.Source,
	clusterRepo cluster.Repository,
	vectorRepo vector.Repository,
	classificationRepo classification.Repository,
	statsRepo stats.Repository,
) *RunPipelineHandler {
	cfg := DefaultRunPipelineConfig()
	cfg.Concurrency = 2
	return NewRunPipelineHandler(
		provider, source, clusterRepo, vectorRepo, classificationRepo, statsRepo,
		nil, nil, cfg,
	)
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestRunPipeline_ClassifiesAllStudents(t *testing.T) {
	provider := &fakeCourseProvider{structure: testStructure()}
	source := &fakeActivitySource{
		students: []activity.StudentID{"s1", "s2"},
		logs: map[activity.StudentID]*activity.Log{
			"s1": testLog("s1", 0.3),
			"s2": testLog("s2", 0.9),
		},
	}
	vectorRepo := newFakeVectorRepo()
	classificationRepo := newFakeClassificationRepo()
	statsRepo := &fakeStatsRepo{}
	handler := newTestHandler(provider, source,
		&fakeClusterRepo{clusters: []*cluster.Cluster{lowScoreCluster(t)}},
		vectorRepo, classificationRepo, statsRepo)

	result, err := handler.Handle(context.Background(), RunPipelineCommand{CourseID: "course-1"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Students)
	assert.Equal(t, 2, result.Classified)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 3, result.Dimensions) // unit, lesson, question
	assert.Len(t, vectorRepo.vectors, 2)
	assert.Len(t, classificationRepo.results, 2)

	// s1 scores 0.3 on every dimension matched by the l1 range, so only
	// the lesson bound holds: distance 0. s2 scores 0.9: distance 1.
	r1, err := classificationRepo.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, r1.Distances["low"])

	r2, err := classificationRepo.Get(context.Background(), "s2")
	require.NoError(t, err)
	assert.Equal(t, 1, r2.Distances["low"])
}

func TestRunPipeline_AggregatesStatistics(t *testing.T) {
	provider := &fakeCourseProvider{structure: testStructure()}
	source := &fakeActivitySource{
		students: []activity.StudentID{"s1", "s2", "s3"},
		logs: map[activity.StudentID]*activity.Log{
			"s1": testLog("s1", 0.2),
			"s2": testLog("s2", 0.4),
			"s3": testLog("s3", 0.9),
		},
	}
	statsRepo := &fakeStatsRepo{}
	handler := newTestHandler(provider, source,
		&fakeClusterRepo{clusters: []*cluster.Cluster{lowScoreCluster(t)}},
		newFakeVectorRepo(), newFakeClassificationRepo(), statsRepo)

	result, err := handler.Handle(context.Background(), RunPipelineCommand{CourseID: "course-1"})
	require.NoError(t, err)
	require.NotNil(t, result.Statistics)

	saved, err := statsRepo.Get(context.Background())
	require.NoError(t, err)
	dist := saved.Counts[cluster.ID("low")]
	require.NotEmpty(t, dist)
	// Two students at distance 0, one at distance 1; cumulative counts.
	assert.Equal(t, 2, dist[0])
	assert.Equal(t, 3, dist[1])
}

func TestRunPipeline_SkipsStudentsWithUnreadableActivity(t *testing.T) {
	provider := &fakeCourseProvider{structure: testStructure()}
	source := &fakeActivitySource{
		students: []activity.StudentID{"s1", "s2", "s3"},
		logs: map[activity.StudentID]*activity.Log{
			"s1": testLog("s1", 0.3),
		},
		errs: map[activity.StudentID]error{
			"s2": errors.New("datastore unavailable"),
			"s3": activity.ErrStudentNotFound,
		},
	}
	vectorRepo := newFakeVectorRepo()
	handler := newTestHandler(provider, source,
		&fakeClusterRepo{clusters: []*cluster.Cluster{lowScoreCluster(t)}},
		vectorRepo, newFakeClassificationRepo(), &fakeStatsRepo{})

	result, err := handler.Handle(context.Background(), RunPipelineCommand{CourseID: "course-1"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Classified)
	assert.Equal(t, 2, result.Skipped)
	assert.Len(t, vectorRepo.vectors, 1)
}

func TestRunPipeline_SkipsStudentsWithEmptyLogs(t *testing.T) {
	provider := &fakeCourseProvider{structure: testStructure()}
	source := &fakeActivitySource{
		students: []activity.StudentID{"s1", "s2"},
		logs: map[activity.StudentID]*activity.Log{
			"s1": testLog("s1", 0.3),
			"s2": {StudentID: "s2"}, // no records at all
		},
	}
	statsRepo := &fakeStatsRepo{}
	handler := newTestHandler(provider, source,
		&fakeClusterRepo{clusters: []*cluster.Cluster{lowScoreCluster(t)}},
		newFakeVectorRepo(), newFakeClassificationRepo(), statsRepo)

	result, err := handler.Handle(context.Background(), RunPipelineCommand{CourseID: "course-1"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Classified)
	assert.Equal(t, 1, result.Skipped)

	// Skipped students never reach the statistics.
	saved, err := statsRepo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Counts[cluster.ID("low")].Total())
}

func TestRunPipeline_VectorSaveFailureIsolatedToStudent(t *testing.T) {
	provider := &fakeCourseProvider{structure: testStructure()}
	source := &fakeActivitySource{
		students: []activity.StudentID{"s1", "s2"},
		logs: map[activity.StudentID]*activity.Log{
			"s1": testLog("s1", 0.3),
			"s2": testLog("s2", 0.9),
		},
	}
	vectorRepo := newFakeVectorRepo()
	vectorRepo.saveErr["s2"] = errors.New("write failed")
	classificationRepo := newFakeClassificationRepo()
	handler := newTestHandler(provider, source,
		&fakeClusterRepo{clusters: []*cluster.Cluster{lowScoreCluster(t)}},
		vectorRepo, classificationRepo, &fakeStatsRepo{})

	result, err := handler.Handle(context.Background(), RunPipelineCommand{CourseID: "course-1"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Classified)
	assert.Equal(t, 1, result.Skipped)
	_, err = classificationRepo.Get(context.Background(), "s2")
	assert.ErrorIs(t, err, shared.ErrClassificationNotFound)
}

func TestRunPipeline_EmptyCatalogFails(t *testing.T) {
	provider := &fakeCourseProvider{structure: &course.Structure{CourseID: "course-1"}}
	handler := newTestHandler(provider, &fakeActivitySource{},
		&fakeClusterRepo{}, newFakeVectorRepo(), newFakeClassificationRepo(), &fakeStatsRepo{})

	_, err := handler.Handle(context.Background(), RunPipelineCommand{CourseID: "course-1"})
	assert.ErrorIs(t, err, shared.ErrNoDimensionsDefined)
}

func TestRunPipeline_RequiresCourseID(t *testing.T) {
	handler := newTestHandler(&fakeCourseProvider{}, &fakeActivitySource{},
		&fakeClusterRepo{}, newFakeVectorRepo(), newFakeClassificationRepo(), &fakeStatsRepo{})

	_, err := handler.Handle(context.Background(), RunPipelineCommand{})
	assert.ErrorIs(t, err, shared.ErrEmptyCourseID)
}

func TestRunPipeline_EmitsLifecycleEvents(t *testing.T) {
	provider := &fakeCourseProvider{structure: testStructure()}
	source := &fakeActivitySource{
		students: []activity.StudentID{"s1"},
		logs:     map[activity.StudentID]*activity.Log{"s1": testLog("s1", 0.3)},
	}
	handler := newTestHandler(provider, source,
		&fakeClusterRepo{clusters: []*cluster.Cluster{lowScoreCluster(t)}},
		newFakeVectorRepo(), newFakeClassificationRepo(), &fakeStatsRepo{})

	result, err := handler.Handle(context.Background(), RunPipelineCommand{CourseID: "course-1"})
	require.NoError(t, err)

	types := make([]shared.EventType, 0, len(result.Events))
	for _, e := range result.Events {
		types = append(types, e.EventType())
	}
	assert.Equal(t, []shared.EventType{
		shared.EventPipelineStarted,
		shared.EventStatisticsRefreshed,
		shared.EventPipelineCompleted,
	}, types)
}

func TestRunPipeline_NoClustersStillSavesEmptyStatistics(t *testing.T) {
	provider := &fakeCourseProvider{structure: testStructure()}
	source := &fakeActivitySource{
		students: []activity.StudentID{"s1"},
		logs:     map[activity.StudentID]*activity.Log{"s1": testLog("s1", 0.3)},
	}
	statsRepo := &fakeStatsRepo{}
	handler := newTestHandler(provider, source, &fakeClusterRepo{},
		newFakeVectorRepo(), newFakeClassificationRepo(), statsRepo)

	result, err := handler.Handle(context.Background(), RunPipelineCommand{CourseID: "course-1"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Clusters)

	saved, err := statsRepo.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, saved.Counts)
}
