package config

import (
	"log"
	"os"
	"strings"

	"genieq-api/internal/adapters/persistence/models"
	"genieq-api/internal/core/domain"
	"genieq-api/internal/pkg/password"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedTickets(); err != nil {
		return err
	}

	if err := s.seedAdminMember(os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD")); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// defaultTickets is the launch catalog
func defaultTickets() []models.Ticket {
	return []models.Ticket{
		{Code: "PACK_1", Name: "1 generation", Units: 1, Price: decimal.NewFromInt(1900), IsActive: true},
		{Code: "PACK_5", Name: "5 generations", Units: 5, Price: decimal.NewFromInt(8900), IsActive: true},
		{Code: "PACK_10", Name: "10 generations", Units: 10, Price: decimal.NewFromInt(16900), IsActive: true},
	}
}

func (s *Seeder) seedTickets() error {
	var count int64
	if err := s.db.Model(&models.Ticket{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tickets := defaultTickets()
	if err := s.db.Create(&tickets).Error; err != nil {
		return err
	}
	log.Printf("✅ Seeded %d tickets", len(tickets))
	return nil
}

// seedAdminMember creates the first ROLE_ADMIN member from ADMIN_EMAIL and
// ADMIN_PASSWORD. Nothing happens when either is unset or an admin exists.
func (s *Seeder) seedAdminMember(email, plain string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || plain == "" {
		return nil
	}

	var count int64
	s.db.Model(&models.Member{}).Where("role = ?", domain.RoleAdmin).Count(&count)
	if count > 0 {
		return nil
	}

	if err := password.Validate(plain); err != nil {
		return err
	}
	hashed, err := password.Hash(plain)
	if err != nil {
		return err
	}

	admin := &models.Member{
		Email:        email,
		Name:         "Administrator",
		PasswordHash: hashed,
		Role:         domain.RoleAdmin,
	}
	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Admin member created: id=%d", admin.ID)
	return nil
}
