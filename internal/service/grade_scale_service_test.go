package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edutrack/gradebook-api/internal/models"
	"github.com/edutrack/gradebook-api/internal/repository"
	appErrors "github.com/edutrack/gradebook-api/pkg/errors"
)

type mockScaleRepo struct {
	scales map[string]*models.GradeScale
	nextID int
}

func (m *mockScaleRepo) List(ctx context.Context, schoolID string) ([]models.GradeScale, error) {
	var result []models.GradeScale
	for _, s := range m.scales {
		if s.SchoolID == schoolID {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockScaleRepo) FindByID(ctx context.Context, schoolID, id string) (*models.GradeScale, error) {
	if s, ok := m.scales[id]; ok && s.SchoolID == schoolID {
		copied := *s
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockScaleRepo) FindDefault(ctx context.Context, schoolID string) (*models.GradeScale, error) {
	for _, s := range m.scales {
		if s.SchoolID == schoolID && s.IsDefault {
			copied := *s
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockScaleRepo) Create(ctx context.Context, scale *models.GradeScale) error {
	if m.scales == nil {
		m.scales = make(map[string]*models.GradeScale)
	}
	m.nextID++
	scale.ID = "scale" + string(rune('0'+m.nextID))
	copied := *scale
	m.scales[scale.ID] = &copied
	return nil
}

func (m *mockScaleRepo) Update(ctx context.Context, scale *models.GradeScale) error {
	existing, ok := m.scales[scale.ID]
	if !ok || existing.SchoolID != scale.SchoolID {
		return repository.ErrScopeViolation
	}
	copied := *scale
	copied.IsDefault = existing.IsDefault
	m.scales[scale.ID] = &copied
	return nil
}

func (m *mockScaleRepo) SetDefault(ctx context.Context, schoolID, id string) error {
	target, ok := m.scales[id]
	if !ok || target.SchoolID != schoolID {
		return repository.ErrScopeViolation
	}
	for _, s := range m.scales {
		if s.SchoolID == schoolID {
			s.IsDefault = false
		}
	}
	target.IsDefault = true
	return nil
}

func (m *mockScaleRepo) Delete(ctx context.Context, schoolID, id string) error {
	if s, ok := m.scales[id]; ok && s.SchoolID == schoolID {
		delete(m.scales, id)
		return nil
	}
	return repository.ErrScopeViolation
}

func scaleRequest() CreateGradeScaleRequest {
	return CreateGradeScaleRequest{
		ScaleName: "National",
		ScaleType: models.ScaleLetter,
		GradeLabels: []models.GradeBand{
			{Min: 80, Max: 100, Grade: "A+", GPA: ptrFloat(5)},
			{Min: 70, Max: 79.99, Grade: "A", GPA: ptrFloat(4)},
			{Min: 0, Max: 69.99, Grade: "F"},
		},
	}
}

func TestGradeScaleCreate(t *testing.T) {
	repo := &mockScaleRepo{}
	svc := NewGradeScaleService(repo, nil, 0, nil, zap.NewNop())

	scale, err := svc.Create(context.Background(), "school-1", scaleRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, scale.ID)
	assert.Equal(t, "school-1", scale.SchoolID)
	assert.False(t, scale.IsDefault)
}

func TestGradeScaleCreateAsDefault(t *testing.T) {
	repo := &mockScaleRepo{}
	svc := NewGradeScaleService(repo, nil, 0, nil, zap.NewNop())

	req := scaleRequest()
	req.IsDefault = true
	scale, err := svc.Create(context.Background(), "school-1", req)
	require.NoError(t, err)
	assert.True(t, scale.IsDefault)

	stored, err := svc.Default(context.Background(), "school-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, scale.ID, stored.ID)
}

func TestGradeScaleOverlappingBandsRejected(t *testing.T) {
	svc := NewGradeScaleService(&mockScaleRepo{}, nil, 0, nil, zap.NewNop())

	req := scaleRequest()
	req.GradeLabels = []models.GradeBand{
		{Min: 80, Max: 100, Grade: "A"},
		{Min: 75, Max: 85, Grade: "B"},
	}
	_, err := svc.Create(context.Background(), "school-1", req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidBands.Code, appErr.Code)
}

func TestGradeScaleInvertedBandRejected(t *testing.T) {
	svc := NewGradeScaleService(&mockScaleRepo{}, nil, 0, nil, zap.NewNop())

	req := scaleRequest()
	req.GradeLabels = []models.GradeBand{{Min: 90, Max: 80, Grade: "A"}}
	_, err := svc.Create(context.Background(), "school-1", req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidBands.Code, appErr.Code)
}

func TestGradeScaleSetDefaultDemotesPrevious(t *testing.T) {
	repo := &mockScaleRepo{}
	svc := NewGradeScaleService(repo, nil, 0, nil, zap.NewNop())

	firstReq := scaleRequest()
	firstReq.IsDefault = true
	first, err := svc.Create(context.Background(), "school-1", firstReq)
	require.NoError(t, err)

	second, err := svc.Create(context.Background(), "school-1", scaleRequest())
	require.NoError(t, err)

	require.NoError(t, svc.SetDefault(context.Background(), "school-1", second.ID))

	current, err := svc.Default(context.Background(), "school-1")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, second.ID, current.ID)
	assert.False(t, repo.scales[first.ID].IsDefault)
}

func TestGradeScaleDefaultNilWhenUnset(t *testing.T) {
	svc := NewGradeScaleService(&mockScaleRepo{}, nil, 0, nil, zap.NewNop())

	scale, err := svc.Default(context.Background(), "school-1")
	require.NoError(t, err)
	assert.Nil(t, scale)
}

func TestGradeScaleCrossTenantInvisible(t *testing.T) {
	repo := &mockScaleRepo{}
	svc := NewGradeScaleService(repo, nil, 0, nil, zap.NewNop())

	created, err := svc.Create(context.Background(), "school-1", scaleRequest())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "school-2", created.ID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)

	err = svc.SetDefault(context.Background(), "school-2", created.ID)
	require.Error(t, err)
	appErr = appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
