package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/tillpoint/internal/app"
	"github.com/neomorfeo/tillpoint/internal/domain"
)

// --- Stores ---

type CreateStoreInput struct {
	Body struct {
		Name        string `json:"name" minLength:"1" maxLength:"120" doc:"Display name"`
		Description string `json:"description,omitempty" maxLength:"1000"`
	}
}

type StoreIDInput struct {
	ID string `path:"id" doc:"Store ID"`
}

type StoreOutput struct {
	Body StoreResponse
}

type ListStoresInput struct {
	Status string `query:"status" required:"false" enum:"pending,active,blocked" doc:"Filter by moderation state"`
	Limit  int    `query:"limit" required:"false" default:"50" minimum:"1" maximum:"500" doc:"Max results"`
	Offset int    `query:"offset" required:"false" default:"0" minimum:"0" doc:"Pagination offset"`
}

type ListStoresOutput struct {
	Body []StoreResponse
}

type ModerateInput struct {
	ID   string `path:"id" doc:"Store ID"`
	Body struct {
		Event string `json:"event" enum:"approve,block,unblock" doc:"Moderation event to apply"`
	}
}

type EntitlementsOutput struct {
	Body EntitlementsResponse
}

// --- Branches ---

type CreateBranchInput struct {
	StoreID string `path:"id" doc:"Store ID"`
	Body    struct {
		Name    string `json:"name" minLength:"1" maxLength:"120"`
		Address string `json:"address,omitempty" maxLength:"500"`
	}
}

type BranchIDInput struct {
	ID string `path:"branchID" doc:"Branch ID"`
}

type BranchOutput struct {
	Body BranchResponse
}

type ListBranchesOutput struct {
	Body []BranchResponse
}

// --- Employees ---

type AddEmployeeInput struct {
	StoreID string `path:"id" doc:"Store ID"`
	Body    struct {
		Email    string `json:"email" format:"email" maxLength:"254"`
		Password string `json:"password" minLength:"8" maxLength:"72"`
		FullName string `json:"full_name" minLength:"1" maxLength:"120"`
		Role     string `json:"role" enum:"store_manager,branch_admin,branch_manager,branch_cashier"`
		BranchID string `json:"branch_id,omitempty" doc:"Required for branch roles"`
	}
}

type EmployeeOutput struct {
	Body PrincipalResponse
}

func registerStores(api huma.API, svc *app.StoreService, entitlements *app.EntitlementService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-store",
		Method:        http.MethodPost,
		Path:          "/api/v1/stores",
		Summary:       "Open a store; it waits for moderation",
		Tags:          []string{"Stores"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateStoreInput) (*StoreOutput, error) {
		tenant, err := svc.CreateStore(ctx, principalFrom(ctx), app.CreateStoreInput{
			Name:        input.Body.Name,
			Description: input.Body.Description,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &StoreOutput{Body: toStoreResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-stores",
		Method:      http.MethodGet,
		Path:        "/api/v1/stores",
		Summary:     "List stores (platform operators)",
		Tags:        []string{"Stores"},
	}, func(ctx context.Context, input *ListStoresInput) (*ListStoresOutput, error) {
		filter := domain.TenantFilter{Limit: input.Limit, Offset: input.Offset}
		if input.Status != "" {
			s := domain.StoreStatus(input.Status)
			filter.Status = &s
		}

		tenants, err := svc.ListStores(ctx, principalFrom(ctx), filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]StoreResponse, len(tenants))
		for i, t := range tenants {
			resp[i] = toStoreResponse(t)
		}
		return &ListStoresOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-store",
		Method:      http.MethodGet,
		Path:        "/api/v1/stores/{id}",
		Summary:     "Get a store by ID",
		Tags:        []string{"Stores"},
	}, func(ctx context.Context, input *StoreIDInput) (*StoreOutput, error) {
		tenant, err := svc.GetStore(ctx, principalFrom(ctx), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &StoreOutput{Body: toStoreResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-store",
		Method:      http.MethodDelete,
		Path:        "/api/v1/stores/{id}",
		Summary:     "Delete a store and its branches",
		Tags:        []string{"Stores"},
	}, func(ctx context.Context, input *StoreIDInput) (*struct{}, error) {
		if err := svc.DeleteStore(ctx, principalFrom(ctx), input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "moderate-store",
		Method:      http.MethodPost,
		Path:        "/api/v1/stores/{id}/moderation",
		Summary:     "Approve, block or unblock a store",
		Tags:        []string{"Stores"},
	}, func(ctx context.Context, input *ModerateInput) (*StoreOutput, error) {
		tenant, err := svc.Moderate(ctx, principalFrom(ctx), input.ID, domain.ModerationEvent(input.Body.Event))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &StoreOutput{Body: toStoreResponse(tenant)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-store-entitlements",
		Method:      http.MethodGet,
		Path:        "/api/v1/stores/{id}/entitlements",
		Summary:     "Ceilings that apply to the store now",
		Tags:        []string{"Stores"},
	}, func(ctx context.Context, input *StoreIDInput) (*EntitlementsOutput, error) {
		// Visibility of the store decides visibility of its ceilings.
		if _, err := svc.GetStore(ctx, principalFrom(ctx), input.ID); err != nil {
			return nil, toHumaError(err)
		}
		e, err := entitlements.For(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &EntitlementsOutput{Body: toEntitlementsResponse(e)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-branch",
		Method:        http.MethodPost,
		Path:          "/api/v1/stores/{id}/branches",
		Summary:       "Open a branch",
		Tags:          []string{"Branches"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateBranchInput) (*BranchOutput, error) {
		branch, err := svc.CreateBranch(ctx, principalFrom(ctx), input.StoreID, app.CreateBranchInput{
			Name:    input.Body.Name,
			Address: input.Body.Address,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &BranchOutput{Body: toBranchResponse(branch)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-branches",
		Method:      http.MethodGet,
		Path:        "/api/v1/stores/{id}/branches",
		Summary:     "List a store's branches",
		Tags:        []string{"Branches"},
	}, func(ctx context.Context, input *StoreIDInput) (*ListBranchesOutput, error) {
		branches, err := svc.ListBranches(ctx, principalFrom(ctx), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]BranchResponse, len(branches))
		for i, b := range branches {
			resp[i] = toBranchResponse(b)
		}
		return &ListBranchesOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-branch",
		Method:      http.MethodGet,
		Path:        "/api/v1/branches/{branchID}",
		Summary:     "Get a branch by ID",
		Tags:        []string{"Branches"},
	}, func(ctx context.Context, input *BranchIDInput) (*BranchOutput, error) {
		branch, err := svc.GetBranch(ctx, principalFrom(ctx), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &BranchOutput{Body: toBranchResponse(branch)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-branch",
		Method:      http.MethodDelete,
		Path:        "/api/v1/branches/{branchID}",
		Summary:     "Close a branch",
		Tags:        []string{"Branches"},
	}, func(ctx context.Context, input *BranchIDInput) (*struct{}, error) {
		if err := svc.DeleteBranch(ctx, principalFrom(ctx), input.ID); err != nil {
			return nil, toHumaError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-employee",
		Method:        http.MethodPost,
		Path:          "/api/v1/stores/{id}/employees",
		Summary:       "Create a staff account inside the store",
		Tags:          []string{"Staff"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *AddEmployeeInput) (*EmployeeOutput, error) {
		p, err := svc.AddEmployee(ctx, principalFrom(ctx), app.AddEmployeeInput{
			Email:    input.Body.Email,
			Password: input.Body.Password,
			FullName: input.Body.FullName,
			Role:     domain.Role(input.Body.Role),
			TenantID: input.StoreID,
			BranchID: input.Body.BranchID,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &EmployeeOutput{Body: toPrincipalResponse(p)}, nil
	})
}
