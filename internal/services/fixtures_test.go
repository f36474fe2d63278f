package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"skillswap-server/internal/config"
	"skillswap-server/internal/models"
)

type fixture struct {
	db            *gorm.DB
	cfg           *config.Config
	logger        *slog.Logger
	listings      ListingStore
	users         UserDirectory
	notifications *NotificationService
	conversations *ConversationService
	messages      *MessageService
	responses     *ResponseService
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.InitDB(models.DatabaseConfig{Driver: models.DriverSQLite, DSN: ":memory:", Silent: true})
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newFixture(t *testing.T, tweak ...func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.Default()
	for _, fn := range tweak {
		fn(cfg)
	}
	db := setupTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{db: db, cfg: cfg, logger: logger}
	f.listings = NewListingStore(db)
	f.users = NewUserDirectory(db)
	f.notifications = NewNotificationService(db, f.users, cfg.Notifications, logger)
	f.conversations = NewConversationService(db, f.listings, f.notifications, logger)
	f.messages = NewMessageService(db, f.conversations, cfg.Messages, logger)
	f.responses = NewResponseService(db, f.listings, f.users, f.notifications, f.conversations, *cfg, logger)
	return f
}

func (f *fixture) user(t *testing.T, firstName string) *models.User {
	t.Helper()
	u := &models.User{Email: firstName + "@uni.example", FirstName: firstName}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *fixture) listing(t *testing.T, owner *models.User, kind models.ListingKind, title string) *models.Listing {
	t.Helper()
	l := &models.Listing{Kind: kind, UserID: owner.ID, Title: title}
	require.NoError(t, f.listings.CreateListing(context.Background(), l))
	return l
}

func (f *fixture) apply(t *testing.T, applicant *models.User, l *models.Listing) *models.Response {
	t.Helper()
	resp, err := f.responses.Apply(context.Background(), applicant.ID, l.Ref(), ApplyInput{
		Message:      "I can help",
		Availability: "weekends",
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) accepted(t *testing.T, applicant, owner *models.User, l *models.Listing) *models.Response {
	t.Helper()
	resp := f.apply(t, applicant, l)
	resp, err := f.responses.SetStatus(context.Background(), resp.ID, owner.ID, models.ResponseAccepted)
	require.NoError(t, err)
	return resp
}

func (f *fixture) notificationsFor(t *testing.T, userID string, types ...models.NotificationType) []models.Notification {
	t.Helper()
	query := f.db.Where("recipient_id = ?", userID)
	if len(types) > 0 {
		query = query.Where("type IN ?", types)
	}
	var out []models.Notification
	require.NoError(t, query.Order("created_at asc").Find(&out).Error)
	return out
}

func (f *fixture) reloadListing(t *testing.T, l *models.Listing) *models.Listing {
	t.Helper()
	fresh, err := f.listings.GetListing(context.Background(), l.Ref())
	require.NoError(t, err)
	return fresh
}

// fixedClock returns a clock that can be moved forward by the test.
func fixedClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

// MockNotifier records which fan-out hooks the ledger calls.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) OnListingCreated(ctx context.Context, listing *models.Listing, excludeUserID string) FanoutReport {
	args := m.Called(ctx, listing, excludeUserID)
	return args.Get(0).(FanoutReport)
}

func (m *MockNotifier) OnResponseCreated(ctx context.Context, ev ResponseEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockNotifier) OnStatusChanged(ctx context.Context, ev ResponseEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockNotifier) OnConnectionEvent(ctx context.Context, ev ConnectionEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}
