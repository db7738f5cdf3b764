// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Default administrator created by SeedAdminUser
const (
	AdminUsername = "admin"
	AdminEmail    = "admin@admin.com"
	AdminPassword = "admin"
)

// Migration handles database migrations
type Migration struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, log *logrus.Logger) *Migration {
	return &Migration{
		db:  db,
		log: log,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.log.Info("🔄 Running database auto-migrations...")

	// Dependency order
	models := []interface{}{
		&user.User{},
		&product.Product{},
		&cart.CartItem{},
		&order.Order{},
		&order.OrderItem{},
		&payment.PaymentRecord{},
	}

	for _, model := range models {
		m.log.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.log.Info("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for the hot queries
func (m *Migration) CreateIndexes() error {
	m.log.Info("🔄 Creating additional database indexes...")

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_products_lower_name ON products(LOWER(name))",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_payment_records_user_status ON payment_records(user_id, status)",
	}

	failed := 0
	for _, stmt := range indexes {
		if err := m.db.Exec(stmt).Error; err != nil {
			m.log.WithError(err).Warnf("⚠️ Failed to create index: %s", stmt)
			failed++
		}
	}

	m.log.Infof("✅ Created %d indexes successfully (%d failed)", len(indexes)-failed, failed)
	return nil
}

// SeedInitialData inserts the administrator and a few demo products
func (m *Migration) SeedInitialData() error {
	m.log.Info("🌱 Seeding initial data...")

	if err := m.SeedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := m.seedDemoProducts(); err != nil {
		return fmt.Errorf("failed to seed demo products: %w", err)
	}

	m.log.Info("✅ Initial data seeded successfully")
	return nil
}

// SeedAdminUser creates the default administrator when it does not exist
func (m *Migration) SeedAdminUser() error {
	var count int64
	if err := m.db.Model(&user.User{}).Where("email = ?", AdminEmail).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		m.log.Info("⏭️ Admin user already exists")
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := user.User{
		Username: AdminUsername,
		Email:    AdminEmail,
		Password: string(hashedPassword),
		IsAdmin:  true,
	}
	if err := m.db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	m.log.Infof("✅ Created admin user: %s", AdminEmail)
	return nil
}

func (m *Migration) seedDemoProducts() error {
	var count int64
	m.db.Model(&product.Product{}).Count(&count)
	if count > 0 {
		m.log.Info("⏭️ Products already exist")
		return nil
	}

	demo := []product.Product{
		{Name: "Ceramic Mug", Description: "Stoneware mug, 350 ml", Price: decimal.RequireFromString("10.00"), Stock: 50},
		{Name: "Canvas Tote", Description: "Heavy cotton tote bag", Price: decimal.RequireFromString("18.50"), Stock: 30},
		{Name: "Desk Lamp", Description: "Adjustable LED desk lamp", Price: decimal.RequireFromString("42.00"), Stock: 12},
		{Name: "Notebook", Description: "A5 dotted notebook, 120 pages", Price: decimal.RequireFromString("6.75"), Stock: 100},
	}

	if err := m.db.Create(&demo).Error; err != nil {
		return err
	}

	m.log.Infof("✅ Created %d demo products", len(demo))
	return nil
}
