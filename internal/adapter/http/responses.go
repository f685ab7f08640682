package http

import (
	"time"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

const timeLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// PrincipalResponse is the API representation of a user. The password hash
// never leaves the service.
type PrincipalResponse struct {
	ID       string `json:"id" doc:"Unique identifier"`
	Email    string `json:"email" doc:"Login email (normalized)"`
	FullName string `json:"full_name" doc:"Display name"`
	Role     string `json:"role" doc:"Role in the system"`
	TenantID string `json:"tenant_id,omitempty" doc:"Store the user belongs to"`
	BranchID string `json:"branch_id,omitempty" doc:"Branch the user works at"`
}

func toPrincipalResponse(p domain.Principal) PrincipalResponse {
	return PrincipalResponse{
		ID:       p.ID,
		Email:    p.Email,
		FullName: p.FullName,
		Role:     string(p.Role),
		TenantID: p.TenantID,
		BranchID: p.BranchID,
	}
}

// SessionResponse is returned by signup and login.
type SessionResponse struct {
	Token     string            `json:"token" doc:"Bearer token"`
	Principal PrincipalResponse `json:"principal"`
}

// StoreResponse is the API representation of a store.
type StoreResponse struct {
	ID          string `json:"id" doc:"Unique identifier"`
	Name        string `json:"name" doc:"Display name"`
	Description string `json:"description,omitempty"`
	OwnerID     string `json:"owner_id" doc:"Store admin who owns the store"`
	Status      string `json:"status" doc:"Moderation state"`
	CreatedAt   string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
	UpdatedAt   string `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toStoreResponse(t domain.Tenant) StoreResponse {
	return StoreResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		OwnerID:     t.OwnerID,
		Status:      string(t.Status),
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
}

// BranchResponse is the API representation of a branch.
type BranchResponse struct {
	ID        string `json:"id"`
	StoreID   string `json:"store_id"`
	Name      string `json:"name"`
	Address   string `json:"address,omitempty"`
	ManagerID string `json:"manager_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toBranchResponse(b domain.Branch) BranchResponse {
	return BranchResponse{
		ID:        b.ID,
		StoreID:   b.TenantID,
		Name:      b.Name,
		Address:   b.Address,
		ManagerID: b.ManagerID,
		CreatedAt: formatTime(b.CreatedAt),
	}
}

// EntitlementsResponse lists a store's ceilings.
type EntitlementsResponse struct {
	MaxBranches int `json:"max_branches"`
	MaxUsers    int `json:"max_users"`
	MaxProducts int `json:"max_products"`
}

func toEntitlementsResponse(e domain.Entitlements) EntitlementsResponse {
	return EntitlementsResponse{MaxBranches: e.MaxBranches, MaxUsers: e.MaxUsers, MaxProducts: e.MaxProducts}
}

// PlanResponse is the API representation of a catalog plan.
type PlanResponse struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Description  string               `json:"description,omitempty"`
	Price        string               `json:"price" doc:"Decimal amount, two places"`
	Currency     string               `json:"currency"`
	Cycle        string               `json:"cycle" enum:"monthly,yearly"`
	Entitlements EntitlementsResponse `json:"entitlements"`
	Features     map[string]bool      `json:"features,omitempty"`
}

func toPlanResponse(p domain.Plan) PlanResponse {
	return PlanResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price.StringFixed(2),
		Currency:     p.Currency,
		Cycle:        string(p.Cycle),
		Entitlements: toEntitlementsResponse(p.Entitlements),
		Features:     p.Features,
	}
}

// SubscriptionResponse is the API representation of a subscription.
type SubscriptionResponse struct {
	ID             string `json:"id"`
	StoreID        string `json:"store_id"`
	PlanID         string `json:"plan_id"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	Status         string `json:"status"`
	PaymentStatus  string `json:"payment_status"`
	Gateway        string `json:"gateway,omitempty"`
	TransactionRef string `json:"transaction_ref,omitempty"`
}

func toSubscriptionResponse(s domain.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:             s.ID,
		StoreID:        s.TenantID,
		PlanID:         s.PlanID,
		StartDate:      formatTime(s.StartDate),
		EndDate:        formatTime(s.EndDate),
		Status:         string(s.Status),
		PaymentStatus:  string(s.PaymentStatus),
		Gateway:        s.Gateway,
		TransactionRef: s.TransactionRef,
	}
}

func toSubscriptionResponses(subs []domain.Subscription) []SubscriptionResponse {
	out := make([]SubscriptionResponse, len(subs))
	for i, s := range subs {
		out[i] = toSubscriptionResponse(s)
	}
	return out
}

// PaymentLinkResponse is returned when a payment link is issued.
type PaymentLinkResponse struct {
	OrderID string `json:"order_id"`
	LinkID  string `json:"link_id"`
	URL     string `json:"url" doc:"Where the payer completes the payment"`
	Amount  string `json:"amount"`
	Method  string `json:"method"`
}

// PaymentOrderResponse reports the outcome of a confirmation.
type PaymentOrderResponse struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	StoreID        string `json:"store_id"`
	PlanID         string `json:"plan_id"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Method         string `json:"method"`
}

func toPaymentOrderResponse(o domain.PaymentOrder) PaymentOrderResponse {
	return PaymentOrderResponse{
		ID:             o.ID,
		Status:         string(o.Status),
		StoreID:        o.TenantID,
		PlanID:         o.PlanID,
		SubscriptionID: o.SubscriptionID,
		Amount:         o.Amount.StringFixed(2),
		Currency:       o.Currency,
		Method:         string(o.Method),
	}
}
