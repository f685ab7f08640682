package http

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"

	"github.com/neomorfeo/tillpoint/internal/app"
	"github.com/neomorfeo/tillpoint/internal/domain"
)

// --- Plans ---

// PlanBody is the writable part of a plan. Price travels as a decimal
// string so no precision is lost in JSON.
type PlanBody struct {
	Name        string          `json:"name" minLength:"1" maxLength:"80"`
	Description string          `json:"description,omitempty" maxLength:"1000"`
	Price       string          `json:"price" pattern:"^[0-9]+(\\.[0-9]{1,2})?$" doc:"Decimal amount, e.g. 79.99"`
	Currency    string          `json:"currency" minLength:"3" maxLength:"3" doc:"ISO 4217 code, upper case"`
	Cycle       string          `json:"cycle" enum:"monthly,yearly"`
	MaxBranches int             `json:"max_branches" minimum:"0"`
	MaxUsers    int             `json:"max_users" minimum:"0"`
	MaxProducts int             `json:"max_products" minimum:"0"`
	Features    map[string]bool `json:"features,omitempty"`
}

func (b PlanBody) toInput() (app.PlanInput, error) {
	price, err := decimal.NewFromString(b.Price)
	if err != nil {
		return app.PlanInput{}, &domain.ValidationError{Field: "price", Reason: "not a decimal amount"}
	}
	return app.PlanInput{
		Name:        b.Name,
		Description: b.Description,
		Price:       price,
		Currency:    b.Currency,
		Cycle:       domain.BillingCycle(b.Cycle),
		Entitlements: domain.Entitlements{
			MaxBranches: b.MaxBranches,
			MaxUsers:    b.MaxUsers,
			MaxProducts: b.MaxProducts,
		},
		Features: b.Features,
	}, nil
}

type CreatePlanInput struct {
	Body PlanBody
}

type UpdatePlanInput struct {
	ID   string `path:"id" doc:"Plan ID"`
	Body PlanBody
}

type PlanIDInput struct {
	ID string `path:"id" doc:"Plan ID"`
}

type PlanOutput struct {
	Body PlanResponse
}

type ListPlansOutput struct {
	Body []PlanResponse
}

// --- Subscriptions ---

type SubscribeInput struct {
	StoreID string `path:"id" doc:"Store ID"`
	Body    struct {
		PlanID         string `json:"plan_id" minLength:"1"`
		Gateway        string `json:"gateway,omitempty" doc:"Gateway that collected the payment, if any"`
		TransactionRef string `json:"transaction_ref,omitempty"`
	}
}

type StoreSubscriptionsInput struct {
	StoreID string `path:"id" doc:"Store ID"`
	Status  string `query:"status" required:"false" enum:"trial,active,expired,cancelled"`
}

type CurrentSubscriptionInput struct {
	StoreID string `path:"id" doc:"Store ID"`
}

type SubscriptionIDInput struct {
	ID string `path:"subscriptionID" doc:"Subscription ID"`
}

type PaymentStatusInput struct {
	ID   string `path:"subscriptionID" doc:"Subscription ID"`
	Body struct {
		Status string `json:"status" enum:"pending,success,failed"`
	}
}

type ListSubscriptionsInput struct {
	Status string `query:"status" required:"false" enum:"trial,active,expired,cancelled"`
}

type ExpiringInput struct {
	Days   int    `query:"days" required:"false" default:"7" minimum:"1" maximum:"365"`
	Status string `query:"status" required:"false" enum:"trial,active,expired,cancelled" doc:"Only subscriptions in this status"`
}

type CountInput struct {
	Status string `query:"status" required:"true" enum:"trial,active,expired,cancelled"`
}

type SubscriptionOutput struct {
	Body SubscriptionResponse
}

type SubscriptionsOutput struct {
	Body []SubscriptionResponse
}

type CountOutput struct {
	Body struct {
		Status string `json:"status"`
		Count  int    `json:"count"`
	}
}

func statusFilter(s string) *domain.SubscriptionStatus {
	if s == "" {
		return nil
	}
	st := domain.SubscriptionStatus(s)
	return &st
}

func registerPlans(api huma.API, svc *app.PlanService) {
	huma.Register(api, huma.Operation{
		OperationID: "list-plans",
		Method:      http.MethodGet,
		Path:        "/api/v1/plans",
		Summary:     "List the plan catalog",
		Tags:        []string{"Plans"},
	}, func(ctx context.Context, _ *struct{}) (*ListPlansOutput, error) {
		plans, err := svc.ListPlans(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]PlanResponse, len(plans))
		for i, p := range plans {
			resp[i] = toPlanResponse(p)
		}
		return &ListPlansOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-plan",
		Method:      http.MethodGet,
		Path:        "/api/v1/plans/{id}",
		Summary:     "Get a plan by ID",
		Tags:        []string{"Plans"},
	}, func(ctx context.Context, input *PlanIDInput) (*PlanOutput, error) {
		plan, err := svc.GetPlan(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &PlanOutput{Body: toPlanResponse(plan)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-plan",
		Method:        http.MethodPost,
		Path:          "/api/v1/plans",
		Summary:       "Add a plan to the catalog",
		Tags:          []string{"Plans"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreatePlanInput) (*PlanOutput, error) {
		in, err := input.Body.toInput()
		if err != nil {
			return nil, toHumaError(err)
		}
		plan, err := svc.CreatePlan(ctx, principalFrom(ctx), in)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &PlanOutput{Body: toPlanResponse(plan)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-plan",
		Method:      http.MethodPut,
		Path:        "/api/v1/plans/{id}",
		Summary:     "Replace a plan's terms",
		Tags:        []string{"Plans"},
	}, func(ctx context.Context, input *UpdatePlanInput) (*PlanOutput, error) {
		in, err := input.Body.toInput()
		if err != nil {
			return nil, toHumaError(err)
		}
		plan, err := svc.UpdatePlan(ctx, principalFrom(ctx), input.ID, in)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &PlanOutput{Body: toPlanResponse(plan)}, nil
	})
}

func registerSubscriptions(api huma.API, svc *app.SubscriptionService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-subscription",
		Method:        http.MethodPost,
		Path:          "/api/v1/stores/{id}/subscriptions",
		Summary:       "Subscribe a store that has no active subscription",
		Tags:          []string{"Subscriptions"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *SubscribeInput) (*SubscriptionOutput, error) {
		sub, err := svc.Create(ctx, principalFrom(ctx), input.StoreID, input.Body.PlanID, input.Body.Gateway, input.Body.TransactionRef)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SubscriptionOutput{Body: toSubscriptionResponse(sub)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "upgrade-subscription",
		Method:      http.MethodPost,
		Path:        "/api/v1/stores/{id}/subscriptions/upgrade",
		Summary:     "Replace the active subscription with a new plan",
		Tags:        []string{"Subscriptions"},
	}, func(ctx context.Context, input *SubscribeInput) (*SubscriptionOutput, error) {
		sub, err := svc.Upgrade(ctx, principalFrom(ctx), input.StoreID, input.Body.PlanID, input.Body.Gateway, input.Body.TransactionRef)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SubscriptionOutput{Body: toSubscriptionResponse(sub)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-store-subscriptions",
		Method:      http.MethodGet,
		Path:        "/api/v1/stores/{id}/subscriptions",
		Summary:     "A store's subscription history",
		Tags:        []string{"Subscriptions"},
	}, func(ctx context.Context, input *StoreSubscriptionsInput) (*SubscriptionsOutput, error) {
		subs, err := svc.ListByTenant(ctx, principalFrom(ctx), input.StoreID, statusFilter(input.Status))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SubscriptionsOutput{Body: toSubscriptionResponses(subs)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "current-subscription",
		Method:      http.MethodGet,
		Path:        "/api/v1/stores/{id}/subscriptions/current",
		Summary:     "The store's active subscription",
		Tags:        []string{"Subscriptions"},
	}, func(ctx context.Context, input *CurrentSubscriptionInput) (*SubscriptionOutput, error) {
		sub, err := svc.Current(ctx, principalFrom(ctx), input.StoreID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SubscriptionOutput{Body: toSubscriptionResponse(sub)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "activate-subscription",
		Method:      http.MethodPost,
		Path:        "/api/v1/subscriptions/{subscriptionID}/activate",
		Summary:     "Activate a subscription (platform operators)",
		Tags:        []string{"Subscriptions"},
	}, func(ctx context.Context, input *SubscriptionIDInput) (*SubscriptionOutput, error) {
		sub, err := svc.Activate(ctx, principalFrom(ctx), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SubscriptionOutput{Body: toSubscriptionResponse(sub)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-subscription",
		Method:      http.MethodPost,
		Path:        "/api/v1/subscriptions/{subscriptionID}/cancel",
		Summary:     "Cancel a subscription",
		Tags:        []string{"Subscriptions"},
	}, func(ctx context.Context, input *SubscriptionIDInput) (*SubscriptionOutput, error) {
		sub, err := svc.Cancel(ctx, principalFrom(ctx), input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SubscriptionOutput{Body: toSubscriptionResponse(sub)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-payment-status",
		Method:      http.MethodPut,
		Path:        "/api/v1/subscriptions/{subscriptionID}/payment-status",
		Summary:     "Record a payment status by hand (platform operators)",
		Tags:        []string{"Subscriptions"},
	}, func(ctx context.Context, input *PaymentStatusInput) (*SubscriptionOutput, error) {
		sub, err := svc.UpdatePaymentStatus(ctx, principalFrom(ctx), input.ID, domain.PaymentStatus(input.Body.Status))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SubscriptionOutput{Body: toSubscriptionResponse(sub)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-subscriptions",
		Method:      http.MethodGet,
		Path:        "/api/v1/subscriptions",
		Summary:     "All subscriptions (platform operators)",
		Tags:        []string{"Reports"},
	}, func(ctx context.Context, input *ListSubscriptionsInput) (*SubscriptionsOutput, error) {
		subs, err := svc.ListAll(ctx, principalFrom(ctx), statusFilter(input.Status))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SubscriptionsOutput{Body: toSubscriptionResponses(subs)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "expiring-subscriptions",
		Method:      http.MethodGet,
		Path:        "/api/v1/reports/subscriptions/expiring",
		Summary:     "Subscriptions ending within a window",
		Tags:        []string{"Reports"},
	}, func(ctx context.Context, input *ExpiringInput) (*SubscriptionsOutput, error) {
		subs, err := svc.ListExpiring(ctx, principalFrom(ctx), input.Days, statusFilter(input.Status))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SubscriptionsOutput{Body: toSubscriptionResponses(subs)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "count-subscriptions",
		Method:      http.MethodGet,
		Path:        "/api/v1/reports/subscriptions/count",
		Summary:     "Number of subscriptions in a status",
		Tags:        []string{"Reports"},
	}, func(ctx context.Context, input *CountInput) (*CountOutput, error) {
		n, err := svc.CountByStatus(ctx, principalFrom(ctx), domain.SubscriptionStatus(input.Status))
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &CountOutput{}
		out.Body.Status = input.Status
		out.Body.Count = n
		return out, nil
	})
}
