package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classlens/classlens/internal/domain/activity"
	"github.com/classlens/classlens/internal/domain/classification"
	"github.com/classlens/classlens/internal/domain/cluster"
	"github.com/classlens/classlens/internal/domain/dimension"
	"github.com/classlens/classlens/internal/domain/shared"
	"github.com/classlens/classlens/internal/domain/vector"
)

type fakeClassificationRepo struct {
	results map[activity.StudentID]*classification.Result
}

func (f *fakeClassificationRepo) Save(_ context.Context, _ *classification.Result) error {
	return nil
}

func (f *fakeClassificationRepo) Get(_ context.Context, studentID activity.StudentID) (*classification.Result, error) {
	r, ok := f.results[studentID]
	if !ok {
		return nil, shared.ErrClassificationNotFound
	}
	return r, nil
}

type fakeVectorStore struct {
	vectors map[activity.StudentID]*vector.Vector
	err     error
}

func (f *fakeVectorStore) Save(_ context.Context, _ *vector.Vector) error { return nil }
func (f *fakeVectorStore) Get(_ context.Context, studentID activity.StudentID) (*vector.Vector, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.vectors[studentID]
	if !ok {
		return nil, shared.ErrVectorNotFound
	}
	return v, nil
}

func TestGetStudentClassification_OrdersDistancesByCatalog(t *testing.T) {
	clusters := []*cluster.Cluster{
		mustCluster(t, "struggling", "Struggling"),
		mustCluster(t, "on-track", "On track"),
		mustCluster(t, "advanced", "Advanced"),
	}
	classRepo := &fakeClassificationRepo{
		results: map[activity.StudentID]*classification.Result{
			"student-1": {
				StudentID: "student-1",
				Distances: map[cluster.ID]int{
					"advanced":   3,
					"struggling": 0,
					"on-track":   1,
				},
			},
		},
	}

	handler := NewGetStudentClassificationHandler(classRepo, &fakeClusterRepo{clusters: clusters}, nil, nil)
	dto, err := handler.Handle(context.Background(), GetStudentClassificationQuery{StudentID: "student-1"})

	require.NoError(t, err)
	assert.Equal(t, "student-1", dto.StudentID)
	require.Len(t, dto.Distances, 3)
	assert.Equal(t, []ClusterDistance{
		{ClusterID: "struggling", ClusterName: "Struggling", Distance: 0},
		{ClusterID: "on-track", ClusterName: "On track", Distance: 1},
		{ClusterID: "advanced", ClusterName: "Advanced", Distance: 3},
	}, dto.Distances)
	assert.Nil(t, dto.Vector)
}

func TestGetStudentClassification_ListsDeletedClustersByRawID(t *testing.T) {
	clusters := []*cluster.Cluster{mustCluster(t, "on-track", "On track")}
	classRepo := &fakeClassificationRepo{
		results: map[activity.StudentID]*classification.Result{
			"student-1": {
				StudentID: "student-1",
				Distances: map[cluster.ID]int{
					"on-track": 1,
					"retired":  2,
				},
			},
		},
	}

	handler := NewGetStudentClassificationHandler(classRepo, &fakeClusterRepo{clusters: clusters}, nil, nil)
	dto, err := handler.Handle(context.Background(), GetStudentClassificationQuery{StudentID: "student-1"})

	require.NoError(t, err)
	require.Len(t, dto.Distances, 2)
	assert.Equal(t, ClusterDistance{ClusterID: "on-track", ClusterName: "On track", Distance: 1}, dto.Distances[0])
	assert.Equal(t, ClusterDistance{ClusterID: "retired", Distance: 2}, dto.Distances[1])
}

func TestGetStudentClassification_IncludesVectorWhenAvailable(t *testing.T) {
	classRepo := &fakeClassificationRepo{
		results: map[activity.StudentID]*classification.Result{
			"student-1": {StudentID: "student-1", Distances: map[cluster.ID]int{}},
		},
	}
	vecRepo := &fakeVectorStore{
		vectors: map[activity.StudentID]*vector.Vector{
			"student-1": {
				StudentID: "student-1",
				Values: map[dimension.Key]float64{
					dimension.UnitKey("u1"): 42,
				},
			},
		},
	}

	handler := NewGetStudentClassificationHandler(classRepo, &fakeClusterRepo{}, vecRepo, nil)
	dto, err := handler.Handle(context.Background(), GetStudentClassificationQuery{StudentID: "student-1"})

	require.NoError(t, err)
	require.Len(t, dto.Vector, 1)
	assert.Equal(t, 42.0, dto.Vector[dimension.UnitKey("u1").String()])
}

func TestGetStudentClassification_MissingVectorIsNotFatal(t *testing.T) {
	classRepo := &fakeClassificationRepo{
		results: map[activity.StudentID]*classification.Result{
			"student-1": {StudentID: "student-1", Distances: map[cluster.ID]int{}},
		},
	}
	vecRepo := &fakeVectorStore{}

	handler := NewGetStudentClassificationHandler(classRepo, &fakeClusterRepo{}, vecRepo, nil)
	dto, err := handler.Handle(context.Background(), GetStudentClassificationQuery{StudentID: "student-1"})

	require.NoError(t, err)
	assert.Nil(t, dto.Vector)
}

func TestGetStudentClassification_UnknownStudent(t *testing.T) {
	handler := NewGetStudentClassificationHandler(&fakeClassificationRepo{}, &fakeClusterRepo{}, nil, nil)

	_, err := handler.Handle(context.Background(), GetStudentClassificationQuery{StudentID: "student-404"})
	assert.ErrorIs(t, err, shared.ErrClassificationNotFound)
}

func TestGetStudentClassification_InvalidStudentID(t *testing.T) {
	handler := NewGetStudentClassificationHandler(&fakeClassificationRepo{}, &fakeClusterRepo{}, nil, nil)

	_, err := handler.Handle(context.Background(), GetStudentClassificationQuery{StudentID: ""})
	assert.ErrorIs(t, err, activity.ErrInvalidStudentID)
}
