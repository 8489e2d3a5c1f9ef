package handlers_test

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/SaadNasir-Drago/Zolo/internal/models"
	"github.com/SaadNasir-Drago/Zolo/internal/services"
)

// --- Mocks ---

// MockUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, firstname, lastname, email, password string) (*models.User, error) {
	args := m.Called(ctx, firstname, lastname, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockPropertyService
type MockPropertyService struct {
	mock.Mock
}

func (m *MockPropertyService) CreateProperty(ctx context.Context, ownerID primitive.ObjectID, draft models.Property) (*models.Property, error) {
	args := m.Called(ctx, ownerID, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) FindPropertyByID(ctx context.Context, propertyID primitive.ObjectID) (*models.Property, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) ListActiveProperties(ctx context.Context, page, limit int) ([]models.Property, error) {
	args := m.Called(ctx, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *MockPropertyService) ListRentProperties(ctx context.Context, page, limit int) (*services.PropertyListPage, error) {
	args := m.Called(ctx, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PropertyListPage), args.Error(1)
}

func (m *MockPropertyService) ListPropertiesByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.Property, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *MockPropertyService) UpdateProperty(ctx context.Context, propertyID primitive.ObjectID, update models.PropertyUpdate) (*models.Property, error) {
	args := m.Called(ctx, propertyID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) DeleteProperty(ctx context.Context, propertyID, ownerID primitive.ObjectID) error {
	return m.Called(ctx, propertyID, ownerID).Error(0)
}

func (m *MockPropertyService) AddImageToProperty(ctx context.Context, propertyID primitive.ObjectID, imageURL string) error {
	return m.Called(ctx, propertyID, imageURL).Error(0)
}

func (m *MockPropertyService) SearchProperties(ctx context.Context, params services.PropertySearchParams) (*services.PropertySearchPage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PropertySearchPage), args.Error(1)
}

// MockDealService
type MockDealService struct {
	mock.Mock
}

func (m *MockDealService) CreateDeal(ctx context.Context, input services.DealInput) (*models.Deal, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Deal), args.Error(1)
}

func (m *MockDealService) FindDealByID(ctx context.Context, dealID primitive.ObjectID) (*models.Deal, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Deal), args.Error(1)
}

func (m *MockDealService) AcceptDeal(ctx context.Context, dealID primitive.ObjectID, sender models.Sender) (*models.Deal, error) {
	args := m.Called(ctx, dealID, sender)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Deal), args.Error(1)
}

func (m *MockDealService) DeclineDeal(ctx context.Context, dealID primitive.ObjectID, sender models.Sender) (*models.Deal, error) {
	args := m.Called(ctx, dealID, sender)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Deal), args.Error(1)
}

func (m *MockDealService) GetDealsForUser(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]models.DealSummary, error) {
	args := m.Called(ctx, userID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DealSummary), args.Error(1)
}

func (m *MockDealService) GetUserDeals(ctx context.Context, userID primitive.ObjectID, page, limit int) (*services.DealPage, error) {
	args := m.Called(ctx, userID, page, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DealPage), args.Error(1)
}

func (m *MockDealService) GetDealProperty(ctx context.Context, dealID primitive.ObjectID) (*models.Property, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockDealService) IsParticipant(ctx context.Context, dealID, userID primitive.ObjectID) (bool, error) {
	args := m.Called(ctx, dealID, userID)
	return args.Bool(0), args.Error(1)
}

// MockMessageService
type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) SendMessage(ctx context.Context, dealID primitive.ObjectID, content string, offer bool, sender models.Sender) (*models.Message, error) {
	args := m.Called(ctx, dealID, content, offer, sender)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageService) ListMessages(ctx context.Context, dealID primitive.ObjectID) ([]models.Message, error) {
	args := m.Called(ctx, dealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockMessageService) BroadcastToAllBuyers(ctx context.Context, propertyID, sellerID primitive.ObjectID, content string, offer bool, excludeDealID primitive.ObjectID) ([]models.Message, error) {
	args := m.Called(ctx, propertyID, sellerID, content, offer, excludeDealID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

// MockInterestService
type MockInterestService struct {
	mock.Mock
}

func (m *MockInterestService) CreateInterest(ctx context.Context, property *models.Property, name, email, phone, message string) (*models.PropertyInterest, error) {
	args := m.Called(ctx, property, name, email, phone, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PropertyInterest), args.Error(1)
}

func (m *MockInterestService) FindInterestByID(ctx context.Context, interestID primitive.ObjectID) (*models.PropertyInterest, error) {
	args := m.Called(ctx, interestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PropertyInterest), args.Error(1)
}

func (m *MockInterestService) MarkInterestSent(ctx context.Context, interestID primitive.ObjectID) error {
	return m.Called(ctx, interestID).Error(0)
}

// MockStorage implements storage.IS3Storage
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GeneratePresignedPutURL(ctx context.Context, userID, propertyID, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, userID, propertyID, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockStorage) GetObject(ctx context.Context, key string) ([]byte, string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func (m *MockStorage) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}

func (m *MockStorage) PublicURL(key string) string {
	return m.Called(key).String(0)
}

// MockAsynqClient implements handlers.IAsynqClient
type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	mockArgs := []interface{}{ctx, task}
	for _, opt := range opts {
		mockArgs = append(mockArgs, opt)
	}
	args := m.Called(mockArgs...)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}
