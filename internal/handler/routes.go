package handler

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes wires every handler onto its route. authenticate gates
// every route but the WebSocket endpoint (which authenticates via its own
// query-param token) — cmd/api picks the concrete middleware (dual JWT+API
// token, or API-token-only when Auth0 isn't configured).
func RegisterRoutes(
	e *echo.Echo,
	authenticate echo.MiddlewareFunc,
	profileHandler *ProfileHandler,
	transactionHandler *TransactionHandler,
	apiTokenHandler *APITokenHandler,
	statementHandler *StatementHandler,
	subscriptionHandler *SubscriptionHandler,
	alertHandler *AlertHandler,
	syncHandler *SyncHandler,
	wsHandler *WebSocketHandler,
) {
	api := e.Group("/api/v1")

	profiles := api.Group("/profiles")
	profiles.Use(authenticate)
	profiles.POST("", profileHandler.CreateProfile)
	profiles.GET("", profileHandler.ListProfiles)
	profiles.GET("/:id", profileHandler.GetProfile)
	profiles.PUT("/:id/active", profileHandler.SetActive)

	transactions := api.Group("/transactions")
	transactions.Use(authenticate)
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.GET("/needs-review", transactionHandler.ListNeedsReview)
	transactions.GET("/needs-reconciliation", transactionHandler.ListNeedsReconciliation)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PATCH("/:id/correct", transactionHandler.CorrectCategory)

	apiTokens := api.Group("/api-tokens")
	apiTokens.Use(authenticate)
	apiTokens.POST("", apiTokenHandler.CreateAPIToken)
	apiTokens.DELETE("/:id", apiTokenHandler.RevokeAPIToken)

	statements := api.Group("/statements")
	statements.Use(authenticate)
	statements.GET("", statementHandler.ListStatements)
	statements.GET("/:id", statementHandler.GetStatement)

	subscriptions := api.Group("/subscriptions")
	subscriptions.Use(authenticate)
	subscriptions.GET("", subscriptionHandler.ListSubscriptions)
	subscriptions.GET("/projection", subscriptionHandler.GetProjection)
	subscriptions.DELETE("/:id", subscriptionHandler.DeactivateSubscription)

	alerts := api.Group("/alerts")
	alerts.Use(authenticate)
	alerts.GET("", alertHandler.ListAlerts)
	alerts.PUT("/:id/ack", alertHandler.AckAlert)

	sync := api.Group("/sync")
	sync.Use(authenticate)
	sync.POST("", syncHandler.TriggerSync)

	e.GET("/ws", wsHandler.HandleWS)
}
