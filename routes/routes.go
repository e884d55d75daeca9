package routes

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"reservation-engine/controllers"
	"reservation-engine/middleware"
)

func parseCorsOrigins() []string {
	raw := strings.TrimSpace(os.Getenv("CORS_ORIGINS"))
	if raw == "" {
		return []string{"*"}
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func SetupRouter(
	bc *controllers.BookingController,
	pc *controllers.PaymentController,
) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logger(), gin.Recovery())

	origins := parseCorsOrigins()
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		bookings := api.Group("/bookings")
		{
			bookings.POST("/quote", bc.Quote)
			bookings.POST("", bc.CreateBooking)

			// booking number routes: lookup + lifecycle
			bookings.GET("/:number", bc.GetBooking)
			bookings.POST("/:number/pay", bc.Pay)
			bookings.POST("/:number/confirm", bc.ConfirmPayment)
			bookings.POST("/:number/checkin", bc.CheckIn)
			bookings.POST("/:number/checkout", bc.CheckOut)
			bookings.POST("/:number/cancel", bc.Cancel)
		}

		payments := api.Group("/payments")
		{
			payments.GET("/return", pc.HandleReturn)
			payments.POST("/webhook", pc.HandleWebhook)
		}

		rooms := api.Group("/rooms")
		{
			rooms.GET("", controllers.GetRooms)
			rooms.GET("/:id", controllers.GetRoomByID)
		}
		roomTypes := api.Group("/room-types")
		{
			roomTypes.GET("", controllers.GetRoomTypes)
			roomTypes.GET("/:id", controllers.GetRoomTypeByID)
		}
	}

	return r
}
