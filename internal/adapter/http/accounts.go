package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/tillpoint/internal/app"
	"github.com/neomorfeo/tillpoint/internal/domain"
)

type SignupInput struct {
	Body struct {
		Email    string `json:"email" format:"email" maxLength:"254"`
		Password string `json:"password" minLength:"8" maxLength:"72"`
		FullName string `json:"full_name" minLength:"1" maxLength:"120"`
		Role     string `json:"role" enum:"store_admin,customer" doc:"Only store owners and customers may sign up"`
	}
}

type LoginInput struct {
	Body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
}

type SessionOutput struct {
	Body SessionResponse
}

type MeOutput struct {
	Body PrincipalResponse
}

func registerAccounts(api huma.API, svc *app.AccountService) {
	huma.Register(api, huma.Operation{
		OperationID:   "signup",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/signup",
		Summary:       "Register a store owner or customer",
		Tags:          []string{"Accounts"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *SignupInput) (*SessionOutput, error) {
		p, token, err := svc.Signup(ctx, app.SignupInput{
			Email:    input.Body.Email,
			Password: input.Body.Password,
			FullName: input.Body.FullName,
			Role:     domain.Role(input.Body.Role),
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SessionOutput{Body: SessionResponse{Token: token, Principal: toPrincipalResponse(p)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "Exchange credentials for a bearer token",
		Tags:        []string{"Accounts"},
	}, func(ctx context.Context, input *LoginInput) (*SessionOutput, error) {
		p, token, err := svc.Login(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SessionOutput{Body: SessionResponse{Token: token, Principal: toPrincipalResponse(p)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/me",
		Summary:     "Describe the authenticated principal",
		Tags:        []string{"Accounts"},
	}, func(ctx context.Context, _ *struct{}) (*MeOutput, error) {
		p := principalFrom(ctx)
		if p.ID == "" {
			return nil, huma.Error401Unauthorized("no authenticated principal")
		}
		return &MeOutput{Body: toPrincipalResponse(p)}, nil
	})
}
