package venue_api_client

const (
	// API Endpoints
	LoginEndpoint        = "/auth/login"
	SalesEndpoint        = "/sales"
	ActiveTimersEndpoint = "/timers/active"
	StockAlertsEndpoint  = "/stock/alerts"
	ServicesEndpoint     = "/services"

	// Headers
	AuthorizationHeader = "Authorization"
	ContentTypeHeader   = "Content-Type"
	ContentTypeJSON     = "application/json"
)
