package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/billing"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) CreateOrGet(ctx context.Context, guardianID, professionalID int64, dogID *int64) (models.Conversation, error) {
	args := m.Called(ctx, guardianID, professionalID, dogID)
	var conversation models.Conversation
	if val := args.Get(0); val != nil {
		conversation = val.(models.Conversation)
	}
	return conversation, args.Error(1)
}

func (m *ConversationRepositoryMock) GetForParticipant(ctx context.Context, conversationID, userID int64) (models.Conversation, error) {
	args := m.Called(ctx, conversationID, userID)
	var conversation models.Conversation
	if val := args.Get(0); val != nil {
		conversation = val.(models.Conversation)
	}
	return conversation, args.Error(1)
}

func (m *ConversationRepositoryMock) ListForParticipant(ctx context.Context, userID int64) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	var list []models.Conversation
	if val := args.Get(0); val != nil {
		list = val.([]models.Conversation)
	}
	return list, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, conversationID, senderID int64, senderRole models.Role, body string) (models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, senderRole, body)
	var message models.Message
	if val := args.Get(0); val != nil {
		message = val.(models.Message)
	}
	return message, args.Error(1)
}

func (m *MessageRepositoryMock) ListByConversation(ctx context.Context, conversationID int64) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

func (m *MessageRepositoryMock) LastMessage(ctx context.Context, conversationID int64) (*models.Message, error) {
	args := m.Called(ctx, conversationID)
	var message *models.Message
	if val := args.Get(0); val != nil {
		message = val.(*models.Message)
	}
	return message, args.Error(1)
}

func (m *MessageRepositoryMock) CountUnreadForUser(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) CountUnreadInConversation(ctx context.Context, conversationID, userID int64) (int, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) MarkConversationRead(ctx context.Context, conversationID, readerID int64) error {
	args := m.Called(ctx, conversationID, readerID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) MarkMessageRead(ctx context.Context, messageID, readerID int64) error {
	args := m.Called(ctx, messageID, readerID)
	return args.Error(0)
}

type ProfileRepositoryMock struct {
	mock.Mock
}

func (m *ProfileRepositoryMock) HasGuardian(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ProfileRepositoryMock) HasProfessional(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ProfileRepositoryMock) GetGuardian(ctx context.Context, userID int64) (models.GuardianProfile, error) {
	args := m.Called(ctx, userID)
	var profile models.GuardianProfile
	if val := args.Get(0); val != nil {
		profile = val.(models.GuardianProfile)
	}
	return profile, args.Error(1)
}

func (m *ProfileRepositoryMock) GetProfessional(ctx context.Context, userID int64) (models.ProfessionalProfile, error) {
	args := m.Called(ctx, userID)
	var profile models.ProfessionalProfile
	if val := args.Get(0); val != nil {
		profile = val.(models.ProfessionalProfile)
	}
	return profile, args.Error(1)
}

func (m *ProfileRepositoryMock) GetDog(ctx context.Context, dogID int64) (models.Dog, error) {
	args := m.Called(ctx, dogID)
	var dog models.Dog
	if val := args.Get(0); val != nil {
		dog = val.(models.Dog)
	}
	return dog, args.Error(1)
}

func (m *ProfileRepositoryMock) UpsertGuardian(ctx context.Context, profile models.GuardianProfile) (models.GuardianProfile, error) {
	args := m.Called(ctx, profile)
	var out models.GuardianProfile
	if val := args.Get(0); val != nil {
		out = val.(models.GuardianProfile)
	}
	return out, args.Error(1)
}

func (m *ProfileRepositoryMock) UpsertProfessional(ctx context.Context, profile models.ProfessionalProfile) (models.ProfessionalProfile, error) {
	args := m.Called(ctx, profile)
	var out models.ProfessionalProfile
	if val := args.Get(0); val != nil {
		out = val.(models.ProfessionalProfile)
	}
	return out, args.Error(1)
}

type BillingRepositoryMock struct {
	mock.Mock
}

func (m *BillingRepositoryMock) RecordEvent(ctx context.Context, providerEventID, eventType string) (bool, error) {
	args := m.Called(ctx, providerEventID, eventType)
	return args.Bool(0), args.Error(1)
}

func (m *BillingRepositoryMock) UpsertSubscription(ctx context.Context, sub models.Subscription) (models.Subscription, error) {
	args := m.Called(ctx, sub)
	var out models.Subscription
	if val := args.Get(0); val != nil {
		out = val.(models.Subscription)
	}
	return out, args.Error(1)
}

func (m *BillingRepositoryMock) GetSubscriptionForUser(ctx context.Context, userID int64) (models.Subscription, error) {
	args := m.Called(ctx, userID)
	var out models.Subscription
	if val := args.Get(0); val != nil {
		out = val.(models.Subscription)
	}
	return out, args.Error(1)
}

type BillingProviderMock struct {
	mock.Mock
}

func (m *BillingProviderMock) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (billing.RedirectSession, error) {
	args := m.Called(ctx, req)
	var session billing.RedirectSession
	if val := args.Get(0); val != nil {
		session = val.(billing.RedirectSession)
	}
	return session, args.Error(1)
}

func (m *BillingProviderMock) CreatePortalSession(ctx context.Context, customerRef, returnURL string) (billing.RedirectSession, error) {
	args := m.Called(ctx, customerRef, returnURL)
	var session billing.RedirectSession
	if val := args.Get(0); val != nil {
		session = val.(billing.RedirectSession)
	}
	return session, args.Error(1)
}

func (m *BillingProviderMock) ListInvoices(ctx context.Context, customerRef string) ([]models.Invoice, error) {
	args := m.Called(ctx, customerRef)
	var list []models.Invoice
	if val := args.Get(0); val != nil {
		list = val.([]models.Invoice)
	}
	return list, args.Error(1)
}
