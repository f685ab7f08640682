package http

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/tillpoint/internal/app"
)

// CallbackVerifier checks the signature a gateway appends to the payer's
// redirect.
type CallbackVerifier interface {
	ValidCallback(linkID, referenceID, status, paymentID, signature string) bool
}

// Services are the application services the API exposes.
type Services struct {
	Accounts      *app.AccountService
	Stores        *app.StoreService
	Entitlements  *app.EntitlementService
	Plans         *app.PlanService
	Subscriptions *app.SubscriptionService
	Payments      *app.PaymentService

	// RazorpayCallback enables the Razorpay redirect route when set.
	RazorpayCallback CallbackVerifier
}

// Register adds all API routes to the Huma API. Callers are identified by
// the Authenticate middleware mounted on the router.
func Register(api huma.API, svc Services) {
	registerAccounts(api, svc.Accounts)
	registerStores(api, svc.Stores, svc.Entitlements)
	registerPlans(api, svc.Plans)
	registerSubscriptions(api, svc.Subscriptions)
	registerPayments(api, svc.Payments, svc.RazorpayCallback)
}
