package user

import "vgsync/internal/domain/user"

type profileInput struct{}

type profileOutput struct {
	Body user.User
}
