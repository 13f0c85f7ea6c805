package applications

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/richxcame/giveaway/internal/antifraud"
	"github.com/richxcame/giveaway/internal/leaflet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockApplicationRepository struct {
	mock.Mock
}

func (m *mockApplicationRepository) Create(ctx context.Context, app *Application) (int64, error) {
	args := m.Called(ctx, app)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockApplicationRepository) GetByID(ctx context.Context, id int64) (*Application, error) {
	args := m.Called(ctx, id)
	app, _ := args.Get(0).(*Application)
	return app, args.Error(1)
}

func (m *mockApplicationRepository) GetByAccountID(ctx context.Context, accountID int64) (*Application, error) {
	args := m.Called(ctx, accountID)
	app, _ := args.Get(0).(*Application)
	return app, args.Error(1)
}

func (m *mockApplicationRepository) Exists(ctx context.Context, accountID int64, phoneNumber string) (bool, error) {
	args := m.Called(ctx, accountID, phoneNumber)
	return args.Bool(0), args.Error(1)
}

func (m *mockApplicationRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockApplicationRepository) List(ctx context.Context, filter ListFilter) ([]*Application, int64, error) {
	args := m.Called(ctx, filter)
	apps, _ := args.Get(0).([]*Application)
	return apps, args.Get(1).(int64), args.Error(2)
}

func (m *mockApplicationRepository) CountDuplicatePhotoHash(ctx context.Context, photoHash string) (int, error) {
	args := m.Called(ctx, photoHash)
	return args.Int(0), args.Error(1)
}

func (m *mockApplicationRepository) CountSimilarPhotoPHash(ctx context.Context, phash string, maxDistance int) (int, error) {
	args := m.Called(ctx, phash, maxDistance)
	return args.Int(0), args.Error(1)
}

func (m *mockApplicationRepository) CountRecentRegistrations(ctx context.Context, window time.Duration) (int, error) {
	args := m.Called(ctx, window)
	return args.Int(0), args.Error(1)
}

func (m *mockApplicationRepository) LoyaltyCardExists(ctx context.Context, cardNumber string) (bool, error) {
	args := m.Called(ctx, cardNumber)
	return args.Bool(0), args.Error(1)
}

func (m *mockApplicationRepository) UpdateRisk(ctx context.Context, id int64, score int, level antifraud.RiskLevel, details []antifraud.CheckResult) error {
	args := m.Called(ctx, id, score, level, details)
	return args.Error(0)
}

func (m *mockApplicationRepository) UpdateLeaflet(ctx context.Context, id int64, analysis *leaflet.Analysis) error {
	args := m.Called(ctx, id, analysis)
	return args.Error(0)
}

func (m *mockApplicationRepository) UpdateDetails(ctx context.Context, id int64, req *UpdateRequest) error {
	args := m.Called(ctx, id, req)
	return args.Error(0)
}

func (m *mockApplicationRepository) SetStatus(ctx context.Context, id int64, status ApplicationStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockApplicationRepository) AssignNextParticipantNumber(ctx context.Context, id int64) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *mockApplicationRepository) Stats(ctx context.Context) (*Stats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*Stats)
	return stats, args.Error(1)
}

func (m *mockApplicationRepository) ListForClustering(ctx context.Context) ([]antifraud.ClusterEntry, error) {
	args := m.Called(ctx)
	entries, _ := args.Get(0).([]antifraud.ClusterEntry)
	return entries, args.Error(1)
}

type fakeStorage struct {
	saved   map[string][]byte
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: make(map[string][]byte)}
}

func (f *fakeStorage) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	f.saved[key] = data
	return key, nil
}

func (f *fakeStorage) Read(_ context.Context, key string) ([]byte, error) {
	return f.saved[key], nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

// sharpTestPhoto renders a checkerboard PNG: large enough to pass the
// resolution gate and busy enough to pass the blur gate.
func sharpTestPhoto(t *testing.T) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 1280, 800))
	for y := 0; y < 800; y++ {
		for x := 0; x < 1280; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestService(repo *mockApplicationRepository, store *fakeStorage, cardExists antifraud.CardExistsFunc) *Service {
	scorer := antifraud.NewScorer(antifraud.ScorerConfig{
		CardLength: 13,
		CardExists: cardExists,
	})
	analyzer := leaflet.NewAnalyzer(
		func(ctx context.Context, phash string, maxDistance int) (int, error) { return 0, nil },
		func(ctx context.Context) (*leaflet.Template, error) { return nil, nil },
	)
	svc := NewService(repo, scorer, analyzer, store, nil)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func validRequest(t *testing.T) *RegisterRequest {
	return &RegisterRequest{
		Name:              "Maral Atayeva",
		PhoneNumber:       "+99365123456",
		Username:          "maral_a",
		AccountID:         777001,
		LoyaltyCardNumber: "4029581736204",
		CampaignType:      "smile_500",
		Photo:             sharpTestPhoto(t),
	}
}

func TestRegisterScoresCleanParticipant(t *testing.T) {
	ctx := context.Background()
	repo := new(mockApplicationRepository)
	store := newFakeStorage()
	svc := newTestService(repo, store, func(context.Context, string) (bool, error) { return false, nil })

	repo.On("Exists", ctx, int64(777001), "+99365123456").Return(false, nil)
	repo.On("CountDuplicatePhotoHash", ctx, mock.AnythingOfType("string")).Return(0, nil)
	repo.On("CountRecentRegistrations", ctx, velocityWindow).Return(0, nil)

	var created *Application
	repo.On("Create", ctx, mock.AnythingOfType("*applications.Application")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*Application) }).
		Return(int64(1), nil)

	result, err := svc.Register(ctx, validRequest(t))
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, int64(1), result.Application.ID)
	assert.Equal(t, 0, result.Risk.Score)
	assert.Equal(t, antifraud.RiskLevelLow, result.Risk.Level)
	assert.Len(t, result.Risk.Details, 8)

	require.NotNil(t, created)
	assert.Equal(t, StatusPending, created.Status)
	assert.NotEmpty(t, created.PhotoHash)
	assert.NotEmpty(t, created.PhotoPHash)
	assert.Equal(t, "user_777001_20250601_120000.jpg", created.PhotoPath)
	assert.Len(t, store.saved, 1)

	// PNG carries no EXIF, so the photo is accepted but flagged for review.
	assert.Equal(t, leaflet.StatusApproved, result.Leaflet.Status)
	assert.True(t, result.Leaflet.ManualReviewRequired)
	assert.Contains(t, result.Leaflet.ValidationNotes, leaflet.NoteExifDatetimeMissing)
}

func TestRegisterRejectsDuplicateRegistration(t *testing.T) {
	ctx := context.Background()
	repo := new(mockApplicationRepository)
	svc := newTestService(repo, newFakeStorage(), nil)

	repo.On("Exists", ctx, int64(777001), "+99365123456").Return(true, nil)

	_, err := svc.Register(ctx, validRequest(t))
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterRequiresPhoto(t *testing.T) {
	svc := newTestService(new(mockApplicationRepository), newFakeStorage(), nil)

	req := validRequest(t)
	req.Photo = nil

	_, err := svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, ErrPhotoRequired)
}

func TestRegisterFlagsHighRiskParticipant(t *testing.T) {
	ctx := context.Background()
	repo := new(mockApplicationRepository)
	svc := newTestService(repo, newFakeStorage(), func(context.Context, string) (bool, error) { return true, nil })

	req := validRequest(t)
	req.Name = "A"
	req.PhoneNumber = "12"
	req.LoyaltyCardNumber = "1111111111111"

	repo.On("Exists", ctx, req.AccountID, req.PhoneNumber).Return(false, nil)
	repo.On("CountDuplicatePhotoHash", ctx, mock.AnythingOfType("string")).Return(2, nil)
	repo.On("CountRecentRegistrations", ctx, velocityWindow).Return(0, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*applications.Application")).Return(int64(2), nil)

	result, err := svc.Register(ctx, req)
	require.NoError(t, err)

	// 25 (phone) + 60 (card taken) + 25 (card pattern) + 60 (photo dup)
	// + 10 (short name) clamps to 100.
	assert.Equal(t, 100, result.Risk.Score)
	assert.Equal(t, antifraud.RiskLevelHigh, result.Risk.Level)
	assert.Equal(t, StatusPending, result.Application.Status)
}

func TestRegisterCountsVelocityFromRepositoryWhenCounterMissing(t *testing.T) {
	ctx := context.Background()
	repo := new(mockApplicationRepository)
	svc := newTestService(repo, newFakeStorage(), func(context.Context, string) (bool, error) { return false, nil })

	repo.On("Exists", ctx, mock.Anything, mock.Anything).Return(false, nil)
	repo.On("CountDuplicatePhotoHash", ctx, mock.AnythingOfType("string")).Return(0, nil)
	repo.On("CountRecentRegistrations", ctx, velocityWindow).Return(45, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*applications.Application")).Return(int64(3), nil)

	result, err := svc.Register(ctx, validRequest(t))
	require.NoError(t, err)

	assert.Equal(t, 15, result.Risk.Score)
	assert.Equal(t, antifraud.RiskLevelLow, result.Risk.Level)

	var velocity *antifraud.CheckResult
	for i := range result.Risk.Details {
		if result.Risk.Details[i].Name == antifraud.CheckVelocity {
			velocity = &result.Risk.Details[i]
		}
	}
	require.NotNil(t, velocity)
	assert.False(t, velocity.Passed)
}

func TestApproveSetsStatusAndReloads(t *testing.T) {
	ctx := context.Background()
	repo := new(mockApplicationRepository)
	svc := newTestService(repo, newFakeStorage(), nil)

	number := 1001
	approved := &Application{ID: 5, Status: StatusApproved, ParticipantNumber: &number}

	repo.On("SetStatus", ctx, int64(5), StatusApproved).Return(nil)
	repo.On("GetByID", ctx, int64(5)).Return(approved, nil)

	app, err := svc.Approve(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, app.Status)
	require.NotNil(t, app.ParticipantNumber)
	assert.Equal(t, 1001, *app.ParticipantNumber)
}

func TestBlockSetsStatus(t *testing.T) {
	ctx := context.Background()
	repo := new(mockApplicationRepository)
	svc := newTestService(repo, newFakeStorage(), nil)

	repo.On("SetStatus", ctx, int64(7), StatusBlocked).Return(nil)
	repo.On("GetByID", ctx, int64(7)).Return(&Application{ID: 7, Status: StatusBlocked}, nil)

	app, err := svc.Block(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, StatusBlocked, app.Status)
}

func TestDeleteRemovesStoredPhoto(t *testing.T) {
	ctx := context.Background()
	repo := new(mockApplicationRepository)
	store := newFakeStorage()
	svc := newTestService(repo, store, nil)

	repo.On("GetByID", ctx, int64(9)).Return(&Application{ID: 9, PhotoPath: "user_9.jpg"}, nil)
	repo.On("Delete", ctx, int64(9)).Return(nil)

	require.NoError(t, svc.Delete(ctx, 9))
	assert.Equal(t, []string{"user_9.jpg"}, store.deleted)
}

func TestClustersGroupsSharedIdentity(t *testing.T) {
	ctx := context.Background()
	repo := new(mockApplicationRepository)
	svc := newTestService(repo, newFakeStorage(), nil)

	repo.On("ListForClustering", ctx).Return([]antifraud.ClusterEntry{
		{ID: 1, PhoneNumber: "+99365111111"},
		{ID: 2, PhoneNumber: "+99365111111"},
		{ID: 3, PhoneNumber: "+99365222222"},
	}, nil)

	clusters, err := svc.Clusters(ctx)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0], 2)
}

func TestRecomputeRiskPersistsNewOutcome(t *testing.T) {
	ctx := context.Background()
	repo := new(mockApplicationRepository)
	svc := newTestService(repo, newFakeStorage(), func(context.Context, string) (bool, error) { return false, nil })

	repo.On("GetByID", ctx, int64(4)).Return(&Application{
		ID:                4,
		Name:              "Maral Atayeva",
		PhoneNumber:       "+99365123456",
		Username:          "maral_a",
		AccountID:         777001,
		LoyaltyCardNumber: "4029581736204",
		PhotoHash:         "deadbeef",
	}, nil)
	repo.On("CountDuplicatePhotoHash", ctx, "deadbeef").Return(1, nil)
	repo.On("UpdateRisk", ctx, int64(4), 0, antifraud.RiskLevelLow, mock.Anything).Return(nil)

	risk, err := svc.RecomputeRisk(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, risk.Score)
	repo.AssertCalled(t, "UpdateRisk", ctx, int64(4), 0, antifraud.RiskLevelLow, mock.Anything)
}

func TestPhotoReturnsStoredBytes(t *testing.T) {
	ctx := context.Background()
	repo := new(mockApplicationRepository)
	store := newFakeStorage()
	svc := newTestService(repo, store, nil)

	photo := sharpTestPhoto(t)
	store.saved["user_12.jpg"] = photo
	repo.On("GetByID", ctx, int64(12)).Return(&Application{ID: 12, PhotoPath: "user_12.jpg"}, nil)

	got, err := svc.Photo(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, photo, got)
}

func TestPhotoMissingPath(t *testing.T) {
	ctx := context.Background()
	repo := new(mockApplicationRepository)
	svc := newTestService(repo, newFakeStorage(), nil)

	repo.On("GetByID", ctx, int64(13)).Return(&Application{ID: 13}, nil)

	_, err := svc.Photo(ctx, 13)
	assert.ErrorIs(t, err, ErrNoStoredPhoto)
}

func TestReanalyzeLeafletPersistsRefreshedOutcome(t *testing.T) {
	ctx := context.Background()
	repo := new(mockApplicationRepository)
	store := newFakeStorage()
	svc := newTestService(repo, store, nil)

	store.saved["user_14.jpg"] = sharpTestPhoto(t)
	repo.On("GetByID", ctx, int64(14)).Return(&Application{ID: 14, PhotoPath: "user_14.jpg"}, nil)

	var persisted *leaflet.Analysis
	repo.On("UpdateLeaflet", ctx, int64(14), mock.AnythingOfType("*leaflet.Analysis")).
		Run(func(args mock.Arguments) { persisted = args.Get(2).(*leaflet.Analysis) }).
		Return(nil)

	_, err := svc.ReanalyzeLeaflet(ctx, 14)
	require.NoError(t, err)

	require.NotNil(t, persisted)
	assert.Equal(t, leaflet.StatusApproved, persisted.Status)
	assert.NotEmpty(t, persisted.PhotoPHash)
	// PNG carries no EXIF datetime, so review stays required.
	assert.True(t, persisted.ManualReviewRequired)
}

func TestReanalyzeLeafletWithoutPhoto(t *testing.T) {
	ctx := context.Background()
	repo := new(mockApplicationRepository)
	svc := newTestService(repo, newFakeStorage(), nil)

	repo.On("GetByID", ctx, int64(15)).Return(&Application{ID: 15}, nil)

	_, err := svc.ReanalyzeLeaflet(ctx, 15)
	assert.ErrorIs(t, err, ErrNoStoredPhoto)
	repo.AssertNotCalled(t, "UpdateLeaflet", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminCreateFlagsManualEntry(t *testing.T) {
	ctx := context.Background()
	repo := new(mockApplicationRepository)
	svc := newTestService(repo, newFakeStorage(), func(context.Context, string) (bool, error) { return false, nil })

	repo.On("Exists", ctx, int64(888002), "+99365999888").Return(false, nil)

	var created *Application
	repo.On("Create", ctx, mock.AnythingOfType("*applications.Application")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*Application) }).
		Return(int64(21), nil)

	app, err := svc.AdminCreate(ctx, &AdminCreateRequest{
		Name:              "Jeren Orazowa",
		PhoneNumber:       "+99365999888",
		AccountID:         888002,
		LoyaltyCardNumber: "4029581736204",
		CampaignType:      "sub_1500",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(21), app.ID)

	require.NotNil(t, created)
	assert.Equal(t, StatusPending, created.Status)
	assert.Equal(t, leaflet.StatusPending, created.LeafletStatus)
	assert.True(t, created.ManualReviewRequired)
	assert.Contains(t, created.ValidationNotes, noteManualEntry)
	// No photo is attached, so the missing-photo check contributes its points.
	assert.Equal(t, 30, created.RiskScore)
}

func TestAdminCreateRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := new(mockApplicationRepository)
	svc := newTestService(repo, newFakeStorage(), nil)

	repo.On("Exists", ctx, int64(888002), "+99365999888").Return(true, nil)

	_, err := svc.AdminCreate(ctx, &AdminCreateRequest{
		Name:        "Jeren Orazowa",
		PhoneNumber: "+99365999888",
		AccountID:   888002,
	})
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdateFixesDetails(t *testing.T) {
	ctx := context.Background()
	repo := new(mockApplicationRepository)
	svc := newTestService(repo, newFakeStorage(), nil)

	req := &UpdateRequest{Name: "Maral  Atayeva ", PhoneNumber: "+99365123457"}
	repo.On("UpdateDetails", ctx, int64(30), req).Return(nil)
	repo.On("GetByID", ctx, int64(30)).Return(&Application{
		ID: 30, Name: "Maral Atayeva", PhoneNumber: "+99365123457",
	}, nil)

	app, err := svc.Update(ctx, 30, req)
	require.NoError(t, err)
	// Free-text fields are sanitized before they reach the repository.
	assert.Equal(t, "Maral Atayeva", req.Name)
	assert.Equal(t, "+99365123457", app.PhoneNumber)
}
