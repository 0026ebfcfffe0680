package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edutrack/gradebook-api/internal/models"
	"github.com/edutrack/gradebook-api/internal/repository"
	appErrors "github.com/edutrack/gradebook-api/pkg/errors"
)

type mockAssessmentRepo struct {
	assessments map[string]*models.Assessment
	components  map[string][]models.AssessmentComponent
	nextID      int
	bulkErr     error
	deleted     []string
}

func (m *mockAssessmentRepo) Create(ctx context.Context, assessment *models.Assessment) error {
	if m.assessments == nil {
		m.assessments = make(map[string]*models.Assessment)
	}
	m.nextID++
	assessment.ID = "as" + string(rune('0'+m.nextID))
	copied := *assessment
	m.assessments[assessment.ID] = &copied
	return nil
}

func (m *mockAssessmentRepo) Update(ctx context.Context, assessment *models.Assessment) error {
	existing, ok := m.assessments[assessment.ID]
	if !ok || existing.SchoolID != assessment.SchoolID {
		return repository.ErrScopeViolation
	}
	copied := *assessment
	m.assessments[assessment.ID] = &copied
	return nil
}

func (m *mockAssessmentRepo) FindByID(ctx context.Context, schoolID, id string) (*models.Assessment, error) {
	a, ok := m.assessments[id]
	if !ok || a.SchoolID != schoolID {
		return nil, sql.ErrNoRows
	}
	copied := *a
	copied.Components = append([]models.AssessmentComponent(nil), m.components[id]...)
	return &copied, nil
}

func (m *mockAssessmentRepo) List(ctx context.Context, schoolID string, filter models.AssessmentFilter) ([]models.Assessment, error) {
	var result []models.Assessment
	for _, a := range m.assessments {
		if a.SchoolID == schoolID {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *mockAssessmentRepo) SetPublished(ctx context.Context, schoolID, id string, published bool) error {
	a, ok := m.assessments[id]
	if !ok || a.SchoolID != schoolID {
		return repository.ErrScopeViolation
	}
	a.IsPublished = published
	return nil
}

func (m *mockAssessmentRepo) CreateComponent(ctx context.Context, schoolID string, component *models.AssessmentComponent) error {
	a, ok := m.assessments[component.AssessmentID]
	if !ok || a.SchoolID != schoolID {
		return repository.ErrScopeViolation
	}
	if m.components == nil {
		m.components = make(map[string][]models.AssessmentComponent)
	}
	m.nextID++
	component.ID = "comp" + string(rune('0'+m.nextID))
	m.components[component.AssessmentID] = append(m.components[component.AssessmentID], *component)
	return nil
}

func (m *mockAssessmentRepo) ListComponents(ctx context.Context, schoolID, assessmentID string) ([]models.AssessmentComponent, error) {
	return m.components[assessmentID], nil
}

func (m *mockAssessmentRepo) DeleteComponent(ctx context.Context, schoolID, assessmentID, componentID string) error {
	comps := m.components[assessmentID]
	for i, comp := range comps {
		if comp.ID == componentID {
			m.components[assessmentID] = append(comps[:i], comps[i+1:]...)
			return nil
		}
	}
	return repository.ErrScopeViolation
}

func (m *mockAssessmentRepo) BulkDelete(ctx context.Context, schoolID string, ids []string) error {
	if m.bulkErr != nil {
		return m.bulkErr
	}
	for _, id := range ids {
		a, ok := m.assessments[id]
		if !ok || a.SchoolID != schoolID {
			return repository.ErrScopeViolation
		}
		if a.IsPublished {
			return repository.ErrPublished
		}
	}
	for _, id := range ids {
		delete(m.assessments, id)
		m.deleted = append(m.deleted, id)
	}
	return nil
}

func assessmentRequest() CreateAssessmentRequest {
	return CreateAssessmentRequest{
		SubjectID:      "math",
		Class:          "10",
		Section:        "A",
		TermID:         "t1",
		AssessmentName: "Midterm",
		AssessmentType: "exam",
		TotalMarks:     100,
	}
}

func TestAssessmentCreate(t *testing.T) {
	repo := &mockAssessmentRepo{}
	svc := NewAssessmentService(repo, nil, zap.NewNop(), nil)

	assessment, err := svc.Create(context.Background(), "school-1", assessmentRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, assessment.ID)
	assert.Equal(t, "school-1", assessment.SchoolID)
	assert.False(t, assessment.IsPublished)
}

func TestAssessmentCreateValidation(t *testing.T) {
	svc := NewAssessmentService(&mockAssessmentRepo{}, nil, zap.NewNop(), nil)

	req := assessmentRequest()
	req.AssessmentType = "pop-quiz"
	_, err := svc.Create(context.Background(), "school-1", req)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	req = assessmentRequest()
	req.TotalMarks = 0
	_, err = svc.Create(context.Background(), "school-1", req)
	require.Error(t, err)
}

func TestAssessmentPublishEmitsEvent(t *testing.T) {
	repo := &mockAssessmentRepo{}
	notifier := &captureNotifier{}
	svc := NewAssessmentService(repo, nil, zap.NewNop(), notifier)

	assessment, err := svc.Create(context.Background(), "school-1", assessmentRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Publish(context.Background(), "school-1", assessment.ID))
	assert.True(t, repo.assessments[assessment.ID].IsPublished)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, models.EventGradesPublished, notifier.events[0].Type)
	assert.Equal(t, "math", notifier.events[0].SubjectID)
}

func TestAssessmentGetCrossTenantNotFound(t *testing.T) {
	repo := &mockAssessmentRepo{}
	svc := NewAssessmentService(repo, nil, zap.NewNop(), nil)

	assessment, err := svc.Create(context.Background(), "school-1", assessmentRequest())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "school-2", assessment.ID)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAssessmentComponentWeightCap(t *testing.T) {
	repo := &mockAssessmentRepo{}
	svc := NewAssessmentService(repo, nil, zap.NewNop(), nil)

	assessment, err := svc.Create(context.Background(), "school-1", assessmentRequest())
	require.NoError(t, err)

	_, err = svc.AddComponent(context.Background(), "school-1", assessment.ID, AddComponentRequest{
		ComponentName:    "MCQ part",
		ComponentType:    "MCQ",
		MaxScore:         40,
		WeightPercentage: ptrFloat(60),
	})
	require.NoError(t, err)

	_, err = svc.AddComponent(context.Background(), "school-1", assessment.ID, AddComponentRequest{
		ComponentName:    "Written part",
		ComponentType:    "Written",
		MaxScore:         60,
		WeightPercentage: ptrFloat(50),
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestAssessmentDuplicateCopiesComponentsNotScores(t *testing.T) {
	repo := &mockAssessmentRepo{}
	svc := NewAssessmentService(repo, nil, zap.NewNop(), nil)

	source, err := svc.Create(context.Background(), "school-1", assessmentRequest())
	require.NoError(t, err)
	_, err = svc.AddComponent(context.Background(), "school-1", source.ID, AddComponentRequest{
		ComponentName: "MCQ part",
		ComponentType: "MCQ",
		MaxScore:      40,
	})
	require.NoError(t, err)

	clone, err := svc.Duplicate(context.Background(), "school-1", source.ID)
	require.NoError(t, err)
	assert.NotEqual(t, source.ID, clone.ID)
	assert.Equal(t, "Midterm (copy)", clone.AssessmentName)
	assert.Equal(t, source.Class, clone.Class)
	require.Len(t, clone.Components, 1)
	assert.NotEqual(t, "", clone.Components[0].ID)
}

func TestAssessmentCopyToClass(t *testing.T) {
	repo := &mockAssessmentRepo{}
	svc := NewAssessmentService(repo, nil, zap.NewNop(), nil)

	source, err := svc.Create(context.Background(), "school-1", assessmentRequest())
	require.NoError(t, err)

	clone, err := svc.CopyToClass(context.Background(), "school-1", source.ID, CopyAssessmentRequest{Class: "11", Section: "B"})
	require.NoError(t, err)
	assert.Equal(t, "Midterm", clone.AssessmentName)
	assert.Equal(t, "11", clone.Class)
	assert.Equal(t, "B", clone.Section)
	assert.Equal(t, "school-1", clone.SchoolID)
}

func TestAssessmentBulkDeleteScopeViolation(t *testing.T) {
	repo := &mockAssessmentRepo{}
	svc := NewAssessmentService(repo, nil, zap.NewNop(), nil)

	owned, err := svc.Create(context.Background(), "school-1", assessmentRequest())
	require.NoError(t, err)

	err = svc.BulkDelete(context.Background(), "school-1", BulkDeleteRequest{IDs: []string{owned.ID, "foreign"}})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Contains(t, repo.assessments, owned.ID)
}

func TestAssessmentBulkDeletePublishedBlocked(t *testing.T) {
	repo := &mockAssessmentRepo{}
	svc := NewAssessmentService(repo, nil, zap.NewNop(), nil)

	assessment, err := svc.Create(context.Background(), "school-1", assessmentRequest())
	require.NoError(t, err)
	require.NoError(t, svc.Publish(context.Background(), "school-1", assessment.ID))

	err = svc.BulkDelete(context.Background(), "school-1", BulkDeleteRequest{IDs: []string{assessment.ID}})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestAssessmentBulkDeleteTransactionFailure(t *testing.T) {
	repo := &mockAssessmentRepo{bulkErr: errors.New("connection reset")}
	svc := NewAssessmentService(repo, nil, zap.NewNop(), nil)

	err := svc.BulkDelete(context.Background(), "school-1", BulkDeleteRequest{IDs: []string{"as1"}})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrTransaction.Code, appErr.Code)
}

func TestAssessmentBulkDeleteSuccess(t *testing.T) {
	repo := &mockAssessmentRepo{}
	svc := NewAssessmentService(repo, nil, zap.NewNop(), nil)

	first, err := svc.Create(context.Background(), "school-1", assessmentRequest())
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), "school-1", assessmentRequest())
	require.NoError(t, err)

	require.NoError(t, svc.BulkDelete(context.Background(), "school-1", BulkDeleteRequest{IDs: []string{first.ID, second.ID}}))
	assert.Empty(t, repo.assessments)
	assert.Len(t, repo.deleted, 2)
}
