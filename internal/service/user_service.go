package service

import (
	"context"
	"time"

	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IUserService interface {
	EnsureUser(ctx context.Context, userId uuid.UUID, email, fullName string) error
}

// userService lazily materializes user rows from verified token claims.
// There is no registration flow; the identity provider owns sign-up.
type userService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewUserService(uowFactory unitofwork.RepositoryFactory) IUserService {
	return &userService{
		uowFactory: uowFactory,
	}
}

func (us *userService) EnsureUser(ctx context.Context, userId uuid.UUID, email, fullName string) error {
	uow := us.uowFactory.NewUnitOfWork(ctx)

	user := entity.User{
		Id:        userId,
		Email:     email,
		FullName:  fullName,
		CreatedAt: time.Now(),
	}
	return uow.UserRepository().Upsert(ctx, &user)
}
