// server/internal/api/routes/routes.go
package routes

import (
	"time"

	"waste-pickup-api-server/config"
	"waste-pickup-api-server/internal/api/handlers"
	"waste-pickup-api-server/internal/api/middleware"
	"waste-pickup-api-server/internal/models"
	"waste-pickup-api-server/internal/pickup"
	"waste-pickup-api-server/internal/socket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetupRouter wires the handlers onto the HTTP surface.
func SetupRouter(
	cfg config.Config,
	db *mongo.Database,
	svc *pickup.Service,
	wsHub *socket.Hub,
) *gin.Engine {
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	pickupHandler := &handlers.PickupHandler{Service: svc}
	userHandler := &handlers.UserHandler{DB: db, Cfg: cfg}
	webSocketHandler := &handlers.WebSocketHandler{Hub: wsHub}

	apiV1 := router.Group("/api/v1")
	{
		// WebSocket route; authenticates via token query param.
		apiV1.GET("/ws", webSocketHandler.ServeWs)

		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", userHandler.Register)
			auth.POST("/login", userHandler.Login)
		}

		protected := apiV1.Group("/")
		protected.Use(middleware.Authenticate())
		{
			pickups := protected.Group("/pickups")
			{
				pickups.GET("/", pickupHandler.GetAllPickups)
				pickups.GET("/:id", pickupHandler.GetPickupByID)

				// Requesters submit pickups and may cancel their own.
				requesterRoutes := pickups.Group("/")
				requesterRoutes.Use(middleware.Authorize(models.RoleRequester, models.RoleAdmin))
				{
					requesterRoutes.POST("/", pickupHandler.CreatePickup)
					requesterRoutes.PATCH("/:id/cancel", pickupHandler.CancelPickup)
				}

				// Drivers browse the queue, claim and progress pickups.
				driverRoutes := pickups.Group("/")
				driverRoutes.Use(middleware.Authorize(models.RoleDriver, models.RoleAdmin))
				{
					driverRoutes.GET("/available", pickupHandler.GetAvailablePickups)
					driverRoutes.PATCH("/:id/claim", pickupHandler.ClaimPickup)
					driverRoutes.PATCH("/:id/pickup", pickupHandler.ConfirmPickedUp)
					driverRoutes.PATCH("/:id/complete", pickupHandler.CompletePickup)
				}
			}
		}
	}

	return router
}
