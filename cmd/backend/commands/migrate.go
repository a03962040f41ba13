package commands

import (
	"fmt"

	"github.com/biodoia/agriconnect/pkg/models"
	"github.com/spf13/cobra"
)

// MigrateCmd rappresenta il comando migrate
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
	Long: `Manage database schema migrations.

This command allows you to run, reset, and seed database migrations
for the AgriConnect backend.`,
	Example: `  # Run all pending migrations
  agriconnect migrate up

  # Reset database (drop and recreate)
  agriconnect migrate reset --confirm

  # Seed demo data
  agriconnect migrate seed`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Run pending migrations",
	Long:  `Run all pending database migrations to bring the schema up to date.`,
	Example: `  # Run migrations
  agriconnect migrate up

  # Run migrations with specific config
  agriconnect migrate up -c config.yaml`,
	RunE: runMigrateUp,
}

var migrateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset database",
	Long:  `Drop all tables and recreate the schema. This will delete all data.`,
	Example: `  # Reset database (requires confirmation)
  agriconnect migrate reset --confirm`,
	RunE: runMigrateReset,
}

var migrateSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo data",
	Long:  `Populate the database with demo marketplace data (users, products, market history).`,
	Example: `  # Seed database
  agriconnect migrate seed`,
	RunE: runMigrateSeed,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long:  `Display the current status of database migrations.`,
	Example: `  # Show migration status
  agriconnect migrate status`,
	RunE: runMigrateStatus,
}

var migrateConfirm bool

func init() {
	migrateResetCmd.Flags().BoolVar(&migrateConfirm, "confirm", false, "Confirm reset action")

	MigrateCmd.AddCommand(migrateUpCmd)
	MigrateCmd.AddCommand(migrateResetCmd)
	MigrateCmd.AddCommand(migrateSeedCmd)
	MigrateCmd.AddCommand(migrateStatusCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	db, err := initDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("Running database migrations...")

	if err := db.AutoMigrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println("✓ Migrations completed successfully")
	return nil
}

func runMigrateReset(cmd *cobra.Command, args []string) error {
	if !migrateConfirm {
		return fmt.Errorf("reset requires --confirm flag to proceed")
	}

	db, err := initDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("⚠️  Resetting database - ALL DATA WILL BE LOST!")

	// Drop all tables in dependency order
	tables := []interface{}{
		&models.Notification{},
		&models.Shipment{},
		&models.Negotiation{},
		&models.Transaction{},
		&models.Certification{},
		&models.MarketData{},
		&models.Product{},
		&models.User{},
	}

	for _, table := range tables {
		if err := db.Migrator().DropTable(table); err != nil {
			fmt.Printf("Warning: Failed to drop table: %v\n", err)
		}
	}

	fmt.Println("✓ All tables dropped")

	// Recreate schema
	fmt.Println("Recreating schema...")
	if err := db.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to recreate schema: %w", err)
	}

	fmt.Println("✓ Database reset successfully")
	return nil
}

func runMigrateSeed(cmd *cobra.Command, args []string) error {
	db, err := initDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	var before int64
	db.Model(&models.User{}).Count(&before)
	if before > 0 {
		fmt.Printf("Database already contains %d users, nothing to do\n", before)
		return nil
	}

	fmt.Println("Seeding database with demo data...")

	if err := db.Seed(); err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	var users, products int64
	db.Model(&models.User{}).Count(&users)
	db.Model(&models.Product{}).Count(&products)

	fmt.Printf("✓ Database seeded successfully (%d users, %d products)\n", users, products)
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	db, err := initDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("Database Migration Status")
	fmt.Println("=========================")
	fmt.Println()

	// Check if tables exist and count records
	tables := []struct {
		name  string
		model interface{}
	}{
		{"users", &models.User{}},
		{"products", &models.Product{}},
		{"transactions", &models.Transaction{}},
		{"negotiations", &models.Negotiation{}},
		{"shipments", &models.Shipment{}},
		{"certifications", &models.Certification{}},
		{"market_data", &models.MarketData{}},
		{"notifications", &models.Notification{}},
	}

	for _, table := range tables {
		exists := db.Migrator().HasTable(table.model)
		status := "✗ Not created"
		var count int64

		if exists {
			db.Model(table.model).Count(&count)
			status = fmt.Sprintf("✓ Created (%d records)", count)
		}

		fmt.Printf("%-20s %s\n", table.name+":", status)
	}

	fmt.Println()

	// Get database info
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}

	stats := sqlDB.Stats()
	fmt.Println("Database Connection:")
	fmt.Printf("  Open connections:   %d\n", stats.OpenConnections)
	fmt.Printf("  In use:             %d\n", stats.InUse)
	fmt.Printf("  Idle:               %d\n", stats.Idle)
	fmt.Printf("  Max open:           %d\n", stats.MaxOpenConnections)

	return nil
}
