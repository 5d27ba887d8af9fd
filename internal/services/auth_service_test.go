package services_test

import (
	"testing"

	"mailroom/internal/models"
	"mailroom/internal/repositories"
	"mailroom/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a testify mock of repositories.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByUsername(username string) (*models.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(id uint) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func TestAuthService_Authenticate(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo)

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		ID:       1,
		Username: "alice",
		Email:    "alice@example.com",
		Password: string(hashedPassword),
	}

	// Successful authentication resolves the stored user.
	mockRepo.On("GetByUsername", "alice").Return(user, nil).Once()
	resolved, err := authService.Authenticate("alice", "password123")
	assert.NoError(t, err)
	assert.Equal(t, uint(1), resolved.ID)
	mockRepo.AssertExpectations(t)

	// Wrong password fails.
	mockRepo.On("GetByUsername", "alice").Return(user, nil).Once()
	_, errWrongPassword := authService.Authenticate("alice", "wrongpassword")
	assert.ErrorIs(t, errWrongPassword, services.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)

	// Unknown user fails with the very same error value, so the two
	// causes are observably identical to a caller.
	mockRepo.On("GetByUsername", "mallory").Return(nil, repositories.ErrUserNotFound).Once()
	_, errUnknownUser := authService.Authenticate("mallory", "password123")
	assert.ErrorIs(t, errUnknownUser, services.ErrInvalidCredentials)
	assert.Equal(t, errWrongPassword, errUnknownUser)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_RegisterUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo)

	user := &models.User{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password123",
	}

	// Successful registration hashes the password before persisting.
	mockRepo.On("GetByUsername", "alice").Return(nil, repositories.ErrUserNotFound).Once()
	mockRepo.On("GetByEmail", "alice@example.com").Return(nil, repositories.ErrUserNotFound).Once()
	mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(nil).Once()

	err := authService.RegisterUser(user)
	assert.NoError(t, err)
	assert.NotEqual(t, "password123", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
	mockRepo.AssertExpectations(t)

	// Username already taken.
	mockRepo.On("GetByUsername", "alice").Return(&models.User{ID: 1}, nil).Once()
	err = authService.RegisterUser(&models.User{Username: "alice", Email: "other@example.com", Password: "password123"})
	assert.ErrorIs(t, err, repositories.ErrDuplicateUser)
	mockRepo.AssertExpectations(t)

	// Email already registered.
	mockRepo.On("GetByUsername", "bob").Return(nil, repositories.ErrUserNotFound).Once()
	mockRepo.On("GetByEmail", "alice@example.com").Return(&models.User{ID: 1}, nil).Once()
	err = authService.RegisterUser(&models.User{Username: "bob", Email: "alice@example.com", Password: "password123"})
	assert.ErrorIs(t, err, repositories.ErrDuplicateUser)
	mockRepo.AssertExpectations(t)
}
