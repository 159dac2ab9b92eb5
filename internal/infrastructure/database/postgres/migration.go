// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/your-org/storefront-backend/internal/domain/analytics"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Define all models that need migration in dependency order
	models := []interface{}{
		// User domain
		&user.User{},

		// Product domain
		&product.Category{},
		&product.Product{},
		&product.ProductImage{},

		// Order domain - Dependent tables
		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},

		// Analytics domain
		&analytics.AbandonedCart{},
	}

	// Run auto-migration for each model
	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at DESC)",

		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products(category_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_featured ON products(is_featured, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_sku ON products(sku)",
		"CREATE INDEX IF NOT EXISTS idx_products_slug ON products(slug)",

		// Category indexes
		"CREATE INDEX IF NOT EXISTS idx_categories_parent_active ON categories(parent_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_categories_slug ON categories(slug)",
		"CREATE INDEX IF NOT EXISTS idx_categories_sort_order ON categories(sort_order)",

		// Product image indexes
		"CREATE INDEX IF NOT EXISTS idx_product_images_sort_order ON product_images(product_id, sort_order)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_order_number ON orders(order_number)",
		"CREATE INDEX IF NOT EXISTS idx_orders_session ON orders(session_id)",
		"CREATE INDEX IF NOT EXISTS idx_orders_email ON orders(email)",
		"CREATE INDEX IF NOT EXISTS idx_orders_total_amount ON orders(total_amount)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",

		// Order items indexes
		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_line ON order_items(line_id)",

		// Order status history indexes
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_status ON order_status_history(status)",

		// Abandoned cart indexes
		"CREATE INDEX IF NOT EXISTS idx_abandoned_carts_session ON abandoned_carts(session_id)",
		"CREATE INDEX IF NOT EXISTS idx_abandoned_carts_abandoned_at ON abandoned_carts(abandoned_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_abandoned_carts_recovered ON abandoned_carts(recovered, abandoned_at DESC)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	// Create default categories
	if err := m.seedCategories(); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	// Create default admin user
	if err := m.seedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	// Create test user for development
	if err := m.seedTestUser(); err != nil {
		return fmt.Errorf("failed to seed test user: %w", err)
	}

	// Seed test products for cart and checkout testing
	if err := m.seedTestProducts(); err != nil {
		return fmt.Errorf("failed to seed test products: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

// seedCategories creates default product categories
func (m *Migration) seedCategories() error {
	log.Println("🏷️ Seeding categories...")

	categories := []product.Category{
		{
			Name:        "Electronics",
			Slug:        "electronics",
			Description: "Electronic devices, gadgets, and accessories",
			SortOrder:   1,
			IsActive:    true,
		},
		{
			Name:        "Clothing",
			Slug:        "clothing",
			Description: "Fashion, apparel, and accessories",
			SortOrder:   2,
			IsActive:    true,
		},
		{
			Name:        "Books",
			Slug:        "books",
			Description: "Books, eBooks, and educational materials",
			SortOrder:   3,
			IsActive:    true,
		},
		{
			Name:        "Home & Garden",
			Slug:        "home-garden",
			Description: "Home improvement, furniture, and garden supplies",
			SortOrder:   4,
			IsActive:    true,
		},
	}

	for _, category := range categories {
		var existing product.Category
		result := m.db.Where("slug = ?", category.Slug).First(&existing)
		if result.Error != nil {
			// Category doesn't exist, create it
			if err := m.db.Create(&category).Error; err != nil {
				return err
			}
			log.Printf("✅ Created category: %s", category.Name)
		} else {
			log.Printf("⏭️ Category already exists: %s", category.Name)
		}
	}

	return nil
}

func (m *Migration) seedAdminUser() error {
	log.Println("👤 Seeding admin user...")

	var existing user.User
	result := m.db.Where("email = ?", "admin@example.com").First(&existing)
	if result.Error != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), 10)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		adminUser := user.User{
			Email:     "admin@example.com",
			Password:  string(hashedPassword),
			FirstName: "Admin",
			LastName:  "User",
			IsActive:  true,
			IsAdmin:   true,
		}

		if err := m.db.Create(&adminUser).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("✅ Created admin user: admin@example.com (password: admin123)")
	} else {
		log.Printf("⏭️ Admin user already exists with ID: %d", existing.ID)
	}

	return nil
}

func (m *Migration) seedTestUser() error {
	log.Println("👤 Seeding test user...")

	var existing user.User
	result := m.db.Where("email = ?", "test1@example.com").First(&existing)
	if result.Error != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("test123"), 10)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		testUser := user.User{
			Email:     "test1@example.com",
			Password:  string(hashedPassword),
			FirstName: "Test",
			LastName:  "User",
			Phone:     "+14155550123",
			IsActive:  true,
			IsAdmin:   false,
		}

		if err := m.db.Create(&testUser).Error; err != nil {
			return err
		}

		log.Println("✅ Created test user: test1@example.com (password: test123)")
	} else {
		log.Println("⏭️ Test user already exists")
	}

	return nil
}

// seedTestProducts creates test products for cart and checkout flows
func (m *Migration) seedTestProducts() error {
	log.Println("🛍️ Seeding test products...")

	// Check if we already have products
	var productCount int64
	m.db.Model(&product.Product{}).Count(&productCount)

	if productCount >= 3 {
		log.Println("⏭️ Test products already exist")
		return nil
	}

	testProducts := []product.Product{
		{
			SKU:          "CART-TEST-001",
			Name:         "Premium Gaming Laptop",
			Slug:         "premium-gaming-laptop",
			Description:  "High-performance gaming laptop with latest processors, dedicated graphics, and premium build quality.",
			ShortDesc:    "High-performance gaming laptop with dedicated graphics",
			Price:        199999, // $1999.99
			ComparePrice: 249999, // $2499.99
			Image:        "https://example.com/images/gaming-laptop.jpg",
			CategoryID:   1, // Electronics
			IsActive:     true,
			IsFeatured:   true,
			Stock:        25,
			Tags:         "gaming,laptop,computer,electronics",
		},
		{
			SKU:          "CART-TEST-002",
			Name:         "Wireless Gaming Mouse",
			Slug:         "wireless-gaming-mouse",
			Description:  "Ergonomic wireless gaming mouse with high-precision sensor, customizable buttons, and RGB lighting.",
			ShortDesc:    "Wireless gaming mouse with precision sensor and RGB lighting",
			Price:        7999, // $79.99
			ComparePrice: 9999, // $99.99
			Image:        "https://example.com/images/gaming-mouse.jpg",
			CategoryID:   1, // Electronics
			IsActive:     true,
			IsFeatured:   false,
			Stock:        50,
			Tags:         "gaming,mouse,wireless,accessories",
		},
		{
			SKU:          "CART-TEST-003",
			Name:         "Bluetooth Noise-Cancelling Headphones",
			Slug:         "bluetooth-noise-cancelling-headphones",
			Description:  "Premium wireless headphones with active noise cancellation, superior sound quality, and long battery life.",
			ShortDesc:    "Premium wireless headphones with active noise cancellation",
			Price:        15999, // $159.99
			ComparePrice: 19999, // $199.99
			Image:        "https://example.com/images/headphones.jpg",
			CategoryID:   1, // Electronics
			IsActive:     true,
			IsFeatured:   true,
			Stock:        30,
			Tags:         "headphones,bluetooth,wireless,audio",
		},
	}

	for _, prod := range testProducts {
		var existing product.Product
		result := m.db.Where("sku = ?", prod.SKU).First(&existing)
		if result.Error != nil {
			if err := m.db.Create(&prod).Error; err != nil {
				log.Printf("⚠️ Failed to create test product %s: %v", prod.SKU, err)
			} else {
				log.Printf("✅ Created test product: %s", prod.Name)
			}
		} else {
			log.Printf("⏭️ Product already exists: %s", prod.Name)
		}
	}

	return nil
}

// DropAllTables drops all tables (use with extreme caution)
func (m *Migration) DropAllTables() error {
	log.Println("⚠️ WARNING: Dropping all database tables...")

	// Define tables in reverse dependency order
	tables := []string{
		"abandoned_carts",
		"order_status_history",
		"order_items",
		"orders",
		"product_images",
		"products",
		"categories",
		"users",
	}

	for _, table := range tables {
		if err := m.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			log.Printf("⚠️ Failed to drop table %s: %v", table, err)
		} else {
			log.Printf("🗑️ Dropped table: %s", table)
		}
	}

	log.Println("✅ All tables dropped successfully")
	return nil
}

// GetTableInfo returns information about database tables
func (m *Migration) GetTableInfo() error {
	var tables []string

	// Get list of tables
	if err := m.db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename").Scan(&tables).Error; err != nil {
		return err
	}

	log.Println("📊 Database Tables Information:")
	log.Println("================================")

	totalRecords := int64(0)
	for _, table := range tables {
		var count int64
		m.db.Table(table).Count(&count)
		totalRecords += count

		status := "✅"
		if count == 0 {
			status = "📭"
		}

		log.Printf("%s %-25s | %d records", status, table, count)
	}

	log.Println("================================")
	log.Printf("📈 Total records across all tables: %d", totalRecords)
	log.Printf("🗂️ Total tables: %d", len(tables))

	return nil
}

// CleanupTestData removes test data (useful for production setup)
func (m *Migration) CleanupTestData() error {
	log.Println("🧹 Cleaning up test data...")

	// Remove test products
	result := m.db.Where("sku LIKE ?", "CART-TEST-%").Delete(&product.Product{})
	log.Printf("🗑️ Removed %d test products", result.RowsAffected)

	// Remove test user (keep admin)
	result = m.db.Where("email = ? AND is_admin = ?", "test1@example.com", false).Delete(&user.User{})
	log.Printf("🗑️ Removed %d test users", result.RowsAffected)

	log.Println("✅ Test data cleanup completed")
	return nil
}
