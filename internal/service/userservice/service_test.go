package userservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"gostore/internal/domain"
	apperror "gostore/internal/errors"
	"gostore/internal/pkg/logger"
	"gostore/internal/pkg/token"
	"gostore/internal/service/userservice"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(domain.User), args.Error(1)
}

func newService(repo *MockUserRepository) *userservice.UserService {
	return userservice.NewService(repo, token.NewService(token.Options{Secret: "segredo-de-teste", TTL: time.Hour}), logger.NewNop())
}

func TestRegister_DefaultsToStaff(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newService(repo)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(u domain.User) bool {
		return u.Email == "ana@loja.com" && u.Role == domain.RoleStaff &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("senha-forte")) == nil
	})).Return(domain.User{ID: "u1", Email: "ana@loja.com", Role: domain.RoleStaff}, nil)

	user, err := svc.Register(context.Background(), domain.UserRegistration{Email: " Ana@Loja.com ", Password: "senha-forte"})

	require.NoError(t, err)
	assert.Equal(t, domain.RoleStaff, user.Role)
	repo.AssertExpectations(t)
}

func TestRegister_Fail_Validation(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newService(repo)

	_, err := svc.Register(context.Background(), domain.UserRegistration{Email: "a@b.c", Password: "curta"})
	assert.IsType(t, &apperror.ValidationError{}, err)

	_, err = svc.Register(context.Background(), domain.UserRegistration{Email: "a@b.c", Password: "senha-forte", Role: "root"})
	assert.IsType(t, &apperror.ValidationError{}, err)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestLogin(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newService(repo)
	hash, _ := bcrypt.GenerateFromPassword([]byte("senha-forte"), bcrypt.MinCost)
	repo.On("FindByEmail", mock.Anything, "ana@loja.com").
		Return(domain.User{ID: "u1", Email: "ana@loja.com", PasswordHash: string(hash), Role: domain.RoleAdmin}, nil)
	repo.On("FindByEmail", mock.Anything, "x@loja.com").
		Return(domain.User{}, apperror.NewNotFoundError("não encontrado"))

	tok, err := svc.Login(context.Background(), "ana@loja.com", "senha-forte")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	_, err = svc.Login(context.Background(), "ana@loja.com", "errada")
	assert.IsType(t, &apperror.UnauthorizedError{}, err)

	_, err = svc.Login(context.Background(), "x@loja.com", "qualquer")
	assert.IsType(t, &apperror.UnauthorizedError{}, err)
}

func TestEnsureAdmin_CreatesOnlyWhenMissing(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newService(repo)
	repo.On("FindByEmail", mock.Anything, "admin@loja.com").
		Return(domain.User{}, apperror.NewNotFoundError("não encontrado")).Once()
	repo.On("Save", mock.Anything, mock.MatchedBy(func(u domain.User) bool { return u.Role == domain.RoleAdmin })).
		Return(domain.User{ID: "u1", Role: domain.RoleAdmin}, nil).Once()

	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin@loja.com", "senha-forte"))

	repo.On("FindByEmail", mock.Anything, "admin@loja.com").Return(domain.User{ID: "u1"}, nil)
	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin@loja.com", "senha-forte"))
	repo.AssertNumberOfCalls(t, "Save", 1)

	require.NoError(t, svc.EnsureAdmin(context.Background(), "", ""))
}
