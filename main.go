package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"reservation-engine/config"
	"reservation-engine/controllers"
	"reservation-engine/payments"
	"reservation-engine/routes"
	"reservation-engine/services"
	"reservation-engine/utils"
)

const sweepInterval = time.Minute

func buildGateway() *payments.Gateway {
	sessionBase := utils.EnvOrDefault("SESSIONPAY_BASE_URL", "https://api.sessionpay.example.com")
	sessionSecret := os.Getenv("SESSIONPAY_SECRET_KEY")
	if sessionSecret == "" {
		log.Println("⚠️  SESSIONPAY_SECRET_KEY not set; session provider will be rejected by the gateway upstream")
	}

	chargeBase := utils.EnvOrDefault("CARDPAY_BASE_URL", "https://api.cardpay.example.com")
	chargeSecret := os.Getenv("CARDPAY_SECRET_KEY")
	chargePublic := os.Getenv("CARDPAY_PUBLIC_KEY")
	if chargeSecret == "" {
		log.Println("⚠️  CARDPAY_SECRET_KEY not set; charge provider will be rejected by the gateway upstream")
	}

	return payments.NewGateway(
		payments.NewSessionProvider("sessionpay", sessionBase, sessionSecret),
		payments.NewChargeProvider("cardpay", chargeBase, chargeSecret, chargePublic),
	)
}

func main() {
	// Load .env (optional)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env not found or couldn't load it; continuing with environment variables")
	}

	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("❌ Database connect failed: %v", err)
	}
	db := config.DB
	if db == nil {
		log.Fatal("❌ config.DB is nil after ConnectDatabase()")
	}
	log.Println("✅ Database connection established and migrations applied")

	config.ConnectRedis()

	// Initialize services
	pricingService := services.NewPricingService(db)
	availabilityService := services.NewAvailabilityService(db)
	bookingService := services.NewBookingService(db, availabilityService, pricingService)
	settlementService := services.NewSettlementService(db, buildGateway(), config.Redis)

	// Initialize controllers
	bookingController := controllers.NewBookingController(bookingService, settlementService, pricingService)
	paymentController := controllers.NewPaymentController(settlementService, bookingService)

	router := routes.SetupRouter(bookingController, paymentController)

	// Expiry sweep releases rooms held by unpaid bookings
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	settlementService.StartExpirySweep(sweepCtx, sweepInterval)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	addr := ":" + port

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe(): %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("⚠️  Shutdown signal received, shutting down server...")

	stopSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}
