package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"skillswap-server/internal/config"
	"skillswap-server/internal/models"
)

func TestNotificationService_OnListingCreated(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Notifications.FanoutBatchSize = 2 })
	ctx := context.Background()
	creator := f.user(t, "alice")
	others := make([]*models.User, 5)
	for i := range others {
		others[i] = f.user(t, fmt.Sprintf("user%d", i))
	}
	offer := f.listing(t, creator, models.ListingOffer, "Guitar lessons")

	report := f.notifications.OnListingCreated(ctx, offer, creator.ID)
	assert.NoError(t, report.Err)
	assert.Equal(t, 5, report.Recipients)
	assert.Equal(t, 5, report.Created)
	assert.Zero(t, report.Failed)

	for _, u := range others {
		notes := f.notificationsFor(t, u.ID)
		require.Len(t, notes, 1, u.FirstName)
		assert.Equal(t, models.NotificationNewOffer, notes[0].Type)
		assert.Equal(t, offer.ID, *notes[0].ListingID)
		assert.Equal(t, "/offers/"+offer.ID, notes[0].ActionURL)
		assert.Contains(t, notes[0].Message, "alice is offering: Guitar lessons")
	}
	assert.Empty(t, f.notificationsFor(t, creator.ID), "the creator is never notified")
}

func TestNotificationService_OnListingCreated_Request(t *testing.T) {
	f := newFixture(t)
	creator, other := f.user(t, "alice"), f.user(t, "bob")
	request := f.listing(t, creator, models.ListingRequest, "Need help with calculus")

	report := f.notifications.OnListingCreated(context.Background(), request, creator.ID)
	assert.Equal(t, 1, report.Created)

	notes := f.notificationsFor(t, other.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationNewRequest, notes[0].Type)
	assert.Equal(t, "/requests/"+request.ID, notes[0].ActionURL)
}

func TestNotificationService_OnListingCreated_NoOtherUsers(t *testing.T) {
	f := newFixture(t)
	creator := f.user(t, "alice")
	offer := f.listing(t, creator, models.ListingOffer, "Guitar lessons")

	report := f.notifications.OnListingCreated(context.Background(), offer, creator.ID)
	assert.Equal(t, FanoutReport{}, report)
}

func TestNotificationService_OnListingCreated_PartialFailure(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Notifications.FanoutBatchSize = 3 })
	ctx := context.Background()
	creator := f.user(t, "alice")
	for i := 0; i < 7; i++ {
		f.user(t, fmt.Sprintf("user%d", i))
	}
	offer := f.listing(t, creator, models.ListingOffer, "Guitar lessons")

	batches := 0
	err := f.db.Callback().Create().Before("gorm:create").Register("test:fail_second_batch", func(tx *gorm.DB) {
		if tx.Statement.Table != "notifications" {
			return
		}
		batches++
		if batches == 2 {
			tx.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)

	report := f.notifications.OnListingCreated(ctx, offer, creator.ID)
	assert.NoError(t, report.Err, "a failed batch does not abort the fan-out")
	assert.Equal(t, 7, report.Recipients)
	assert.Equal(t, 4, report.Created)
	assert.Equal(t, 3, report.Failed)
	assert.Equal(t, 3, batches)

	var stored int64
	require.NoError(t, f.db.Model(&models.Notification{}).Count(&stored).Error)
	assert.Equal(t, int64(4), stored)
}

func TestNotificationService_Inbox(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
	offer := f.listing(t, alice, models.ListingOffer, "Guitar lessons")
	f.apply(t, bob, offer)
	f.apply(t, carol, offer)
	request := f.listing(t, alice, models.ListingRequest, "Need a drummer")
	f.apply(t, bob, request)

	items, total, err := f.notifications.List(ctx, alice.ID, false, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 3)
	assert.Equal(t, models.NotificationRequestResponse, items[0].Type, "newest first")

	unread, err := f.notifications.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), unread)

	read, err := f.notifications.MarkRead(ctx, items[0].ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	require.NotNil(t, read.ReadAt)

	again, err := f.notifications.MarkRead(ctx, items[0].ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, read.ReadAt.Unix(), again.ReadAt.Unix())

	onlyUnread, total, err := f.notifications.List(ctx, alice.ID, true, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, onlyUnread, 2)

	paged, total, err := f.notifications.List(ctx, alice.ID, false, Page{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, paged, 1)

	changed, err := f.notifications.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)
	unread, err = f.notifications.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)

	require.NoError(t, f.notifications.Delete(ctx, items[1].ID, alice.ID))
	_, total, err = f.notifications.List(ctx, alice.ID, false, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestNotificationService_ForeignNotification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	offer := f.listing(t, alice, models.ListingOffer, "Guitar lessons")
	f.apply(t, bob, offer)

	notes := f.notificationsFor(t, alice.ID)
	require.Len(t, notes, 1)

	_, err := f.notifications.MarkRead(ctx, notes[0].ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.notifications.Delete(ctx, notes[0].ID, bob.ID), ErrNotFound)

	unread, err := f.notifications.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestCounterpart(t *testing.T) {
	resp := &models.Response{ApplicantID: "applicant"}

	assert.Equal(t, "owner", counterpart(resp, "owner", "applicant"))
	assert.Equal(t, "applicant", counterpart(resp, "owner", "owner"))
}
