package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"snapnet-backend/internal/clock"
	"snapnet-backend/internal/mocks"
	"snapnet-backend/internal/models"
	"snapnet-backend/internal/services"
	"snapnet-backend/internal/storage"
)

type messageFixture struct {
	clk      *clock.Fake
	messages *mocks.MessageStoreMock
	profiles *mocks.ProfileStoreMock
	snaps    *mocks.SnapStoreMock
	notifier *notifierStub
	service  *services.MessageService
}

func newMessageFixture() *messageFixture {
	f := &messageFixture{
		clk:      clock.NewFake(baseTime),
		messages: new(mocks.MessageStoreMock),
		profiles: new(mocks.ProfileStoreMock),
		snaps:    new(mocks.SnapStoreMock),
		notifier: newNotifierStub(),
	}
	lifecycle := services.NewLifecycleEngine(lifecycleConfig(), f.clk, f.snaps, new(mocks.StoryStoreMock), f.messages, storage.NewMemory())
	f.service = services.NewMessageService(f.messages, f.profiles, f.snaps, lifecycle, f.notifier, f.clk)
	return f
}

func TestSendMessageRequiresContent(t *testing.T) {
	f := newMessageFixture()
	sender := &models.Profile{ID: botA, Username: "alpha"}

	_, err := f.service.Send(context.Background(), sender, services.SendMessageRequest{RecipientUsername: "beta"})
	require.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestSendMessageBlockedRecipient(t *testing.T) {
	f := newMessageFixture()
	sender := &models.Profile{ID: botA, Username: "alpha"}
	recipient := &models.Profile{ID: botB, Username: "beta"}

	f.profiles.On("GetByUsername", mock.Anything, "beta").Return(recipient, nil).Once()
	f.profiles.On("IsBlocked", mock.Anything, botB, botA).Return(true, nil).Once()

	_, err := f.service.Send(context.Background(), sender, services.SendMessageRequest{
		RecipientUsername: "beta",
		Text:              strPtr("hi"),
	})
	require.ErrorIs(t, err, services.ErrForbidden)
	f.profiles.AssertExpectations(t)
}

func TestSendMessageNotifiesRecipient(t *testing.T) {
	f := newMessageFixture()
	sender := &models.Profile{ID: botA, Username: "alpha"}
	recipient := &models.Profile{ID: botB, Username: "beta"}

	f.profiles.On("GetByUsername", mock.Anything, "beta").Return(recipient, nil).Once()
	f.profiles.On("IsBlocked", mock.Anything, botB, botA).Return(false, nil).Once()
	f.messages.On("Create", mock.Anything, mock.AnythingOfType("*models.Message")).Return(nil).Once()
	f.profiles.On("GetByID", mock.Anything, botA).Return(sender, nil)

	view, err := f.service.Send(context.Background(), sender, services.SendMessageRequest{
		RecipientUsername: "beta",
		Text:              strPtr("hi"),
	})
	require.NoError(t, err)
	assert.Equal(t, "alpha", view.SenderUsername)
	assert.Equal(t, baseTime.Add(24*time.Hour), view.ExpiresAt)

	events := f.notifier.sent(botB)
	require.Len(t, events, 1)
	assert.Equal(t, "message.received", events[0].Type)
	assert.Equal(t, view.ID, events[0].MessageID)
	f.messages.AssertExpectations(t)
	f.profiles.AssertExpectations(t)
}

func TestInboxAutoMarksUnread(t *testing.T) {
	f := newMessageFixture()
	bot := &models.Profile{ID: botB, Username: "beta"}
	msg := &models.Message{
		ID:          "m1",
		SenderID:    botA,
		RecipientID: botB,
		Text:        strPtr("hi"),
		ExpiresAt:   baseTime.Add(24 * time.Hour),
	}

	grace := baseTime.Add(20 * time.Minute)
	f.messages.On("Inbox", mock.Anything, botB, baseTime).Return([]*models.Message{msg}, nil).Once()
	f.messages.On("MarkRead", mock.Anything, "m1", baseTime, grace).Return(true, nil).Once()
	f.profiles.On("GetByID", mock.Anything, botA).Return(&models.Profile{ID: botA, Username: "alpha"}, nil)

	views, err := f.service.Inbox(context.Background(), bot)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.NotNil(t, views[0].ReadAt)
	assert.Equal(t, baseTime, *views[0].ReadAt)
	assert.Equal(t, grace, views[0].ExpiresAt, "reading shortens the expiry to the grace period")
	f.messages.AssertExpectations(t)
}

func TestMarkReadNeverExtendsExpiry(t *testing.T) {
	f := newMessageFixture()
	bot := &models.Profile{ID: botB, Username: "beta"}
	soon := baseTime.Add(5 * time.Minute)
	msg := &models.Message{
		ID:          "m1",
		SenderID:    botA,
		RecipientID: botB,
		Text:        strPtr("hi"),
		ExpiresAt:   soon,
	}

	f.messages.On("GetByID", mock.Anything, "m1").Return(msg, nil).Once()
	f.messages.On("MarkRead", mock.Anything, "m1", baseTime, soon).Return(true, nil).Once()
	f.profiles.On("GetByID", mock.Anything, botA).Return(&models.Profile{ID: botA, Username: "alpha"}, nil)

	view, err := f.service.MarkRead(context.Background(), bot, "m1")
	require.NoError(t, err)
	assert.Equal(t, soon, view.ExpiresAt, "a message expiring inside the grace keeps its own expiry")
	f.messages.AssertExpectations(t)
}

func TestMarkReadOnlyRecipient(t *testing.T) {
	f := newMessageFixture()
	bot := &models.Profile{ID: botA, Username: "alpha"}
	msg := &models.Message{ID: "m1", SenderID: botA, RecipientID: botB, ExpiresAt: baseTime.Add(time.Hour)}

	f.messages.On("GetByID", mock.Anything, "m1").Return(msg, nil).Once()

	_, err := f.service.MarkRead(context.Background(), bot, "m1")
	require.ErrorIs(t, err, services.ErrForbidden)
	f.messages.AssertExpectations(t)
}

func TestGetExpiredMessageIsGone(t *testing.T) {
	f := newMessageFixture()
	bot := &models.Profile{ID: botB, Username: "beta"}
	msg := &models.Message{ID: "m1", SenderID: botA, RecipientID: botB, ExpiresAt: baseTime}

	f.messages.On("GetByID", mock.Anything, "m1").Return(msg, nil).Once()

	_, err := f.service.Get(context.Background(), bot, "m1")
	require.ErrorIs(t, err, services.ErrGone)
	f.messages.AssertExpectations(t)
}

func TestDeleteMessageThirdPartyForbidden(t *testing.T) {
	f := newMessageFixture()
	bot := &models.Profile{ID: botC, Username: "gamma"}
	msg := &models.Message{ID: "m1", SenderID: botA, RecipientID: botB, ExpiresAt: baseTime.Add(time.Hour)}

	f.messages.On("GetByID", mock.Anything, "m1").Return(msg, nil).Once()

	err := f.service.Delete(context.Background(), bot, "m1")
	require.ErrorIs(t, err, services.ErrForbidden)
	f.messages.AssertExpectations(t)
}
