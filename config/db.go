package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"reservation-engine/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// SeedDatabase fills an empty catalog with demo inventory and promo codes.
// Catalog writes are otherwise owned by external tooling.
func SeedDatabase() {
	var rtCount int64
	DB.Model(&models.RoomType{}).Count(&rtCount)

	if rtCount == 0 {
		roomTypes := []models.RoomType{
			{TypeName: "Standard", Description: "Standard Room", NightlyRate: 1200, MonthlyRate: 24000, MaxGuests: 2, TotalRooms: 4},
			{TypeName: "Superior", Description: "Superior Room", NightlyRate: 1800, MonthlyRate: 36000, MaxGuests: 3, TotalRooms: 3},
			{TypeName: "Deluxe", Description: "Deluxe Room", NightlyRate: 2500, MonthlyRate: 50000, MaxGuests: 4, TotalRooms: 2},
		}
		if err := DB.Create(&roomTypes).Error; err != nil {
			log.Printf("warning: failed to seed room types: %v", err)
			return
		}
		log.Println("RoomTypes seeded")

		rooms := []models.Room{
			{RoomTypeID: roomTypes[0].ID, RoomNumber: "201", Floor: "2", Active: true},
			{RoomTypeID: roomTypes[0].ID, RoomNumber: "202", Floor: "2", Active: true},
			{RoomTypeID: roomTypes[0].ID, RoomNumber: "203", Floor: "2", Active: true},
			{RoomTypeID: roomTypes[0].ID, RoomNumber: "204", Floor: "2", Active: true},
			{RoomTypeID: roomTypes[1].ID, RoomNumber: "301", Floor: "3", Active: true},
			{RoomTypeID: roomTypes[1].ID, RoomNumber: "302", Floor: "3", Active: true},
			{RoomTypeID: roomTypes[1].ID, RoomNumber: "303", Floor: "3", Active: true},
			{RoomTypeID: roomTypes[2].ID, RoomNumber: "101", Floor: "1", Active: true},
			{RoomTypeID: roomTypes[2].ID, RoomNumber: "102", Floor: "1", Active: true},
		}
		if err := DB.Create(&rooms).Error; err != nil {
			log.Printf("warning: failed to seed rooms: %v", err)
		} else {
			log.Println("Rooms seeded")
		}
	}

	var promoCount int64
	DB.Model(&models.PromoCode{}).Count(&promoCount)
	if promoCount == 0 {
		until := time.Now().UTC().AddDate(1, 0, 0)
		promos := []models.PromoCode{
			{Code: "WELCOME10", PercentOff: 10, ValidThrough: &until, Active: true},
			{Code: "LONGSTAY500", AmountOff: 500, ValidThrough: &until, Active: true},
		}
		if err := DB.Create(&promos).Error; err != nil {
			log.Printf("warning: failed to seed promo codes: %v", err)
		} else {
			log.Println("PromoCodes seeded")
		}
	}
}

func envOrDefault(key, def string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	return value
}

func mysqlDSNFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	user := u.User.Username()
	pass, _ := u.User.Password()
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "3306"
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return "", fmt.Errorf("mysql url missing database name")
	}

	q := u.Query()
	if q.Get("charset") == "" {
		q.Set("charset", "utf8mb4")
	}
	if q.Get("parseTime") == "" {
		q.Set("parseTime", "True")
	}
	if q.Get("loc") == "" {
		q.Set("loc", "UTC")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?%s", user, pass, host, port, dbName, q.Encode())
	return dsn, nil
}

func resolveMySQLDSN() (string, error) {
	raw := strings.TrimSpace(os.Getenv("MYSQL_URL"))
	if raw == "" {
		raw = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}

	if raw != "" {
		if strings.HasPrefix(raw, "mysql://") {
			return mysqlDSNFromURL(raw)
		}
		return raw, nil
	}

	user := envOrDefault("DB_USER", "root")
	pass := envOrDefault("DB_PASS", "")
	host := envOrDefault("DB_HOST", "127.0.0.1")
	port := envOrDefault("DB_PORT", "3306")
	dbName := envOrDefault("DB_NAME", "reservation_db")

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		user, pass, host, port, dbName,
	)
	return dsn, nil
}

func ConnectDatabase() error {
	dsn, err := resolveMySQLDSN()
	if err != nil {
		return err
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Warn,
			Colorful:      true,
		},
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: newLogger})
	if err != nil {
		return err
	}

	DB = db

	// AutoMigrate in parent->child order
	if err := DB.AutoMigrate(
		&models.RoomType{},
		&models.Room{},
		&models.PromoCode{},
		&models.Booking{},
		&models.PaymentAttempt{},
	); err != nil {
		return err
	}

	SeedDatabase()
	return nil
}
