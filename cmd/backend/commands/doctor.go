package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/biodoia/agriconnect/pkg/config"
	"github.com/biodoia/agriconnect/pkg/models"
	"github.com/spf13/cobra"
)

// DoctorCmd rappresenta il comando doctor
var DoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health diagnostics",
	Long: `Run comprehensive health checks on the AgriConnect system.

This command checks database connectivity, LLM provider reachability
and agent health to identify any issues.`,
	Example: `  # Run full diagnostic
  agriconnect doctor

  # Check only database
  agriconnect doctor --check database

  # Verbose output
  agriconnect doctor --verbose`,
	RunE: runDoctor,
}

var (
	doctorCheck   string
	doctorVerbose bool
)

func init() {
	DoctorCmd.Flags().StringVar(&doctorCheck, "check", "", "Run specific check (database, providers, agents)")
	DoctorCmd.Flags().BoolVarP(&doctorVerbose, "verbose", "v", false, "Verbose output")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println("AgriConnect System Health Check")
	fmt.Println("===============================")
	fmt.Println()

	checks := []struct {
		name string
		fn   func(*cobra.Command) error
	}{
		{"database", checkDatabase},
		{"providers", checkProviders},
		{"agents", checkAgents},
	}

	// Run specific check or all checks
	if doctorCheck != "" {
		for _, check := range checks {
			if check.name == doctorCheck {
				return check.fn(cmd)
			}
		}
		return fmt.Errorf("unknown check: %s", doctorCheck)
	}

	// Run all checks
	results := make(map[string]bool, len(checks))
	for _, check := range checks {
		err := check.fn(cmd)
		results[check.name] = err == nil
		fmt.Println()
	}

	// Print summary
	fmt.Println("Summary")
	fmt.Println("-------")
	allPassed := true
	for _, check := range checks {
		status := "✓ PASS"
		if !results[check.name] {
			status = "✗ FAIL"
			allPassed = false
		}
		fmt.Printf("%-15s %s\n", check.name+":", status)
	}

	fmt.Println()
	if allPassed {
		fmt.Println("✓ All checks passed - system is healthy")
		return nil
	}
	fmt.Println("✗ Some checks failed - please review errors above")
	return fmt.Errorf("health check failed")
}

func checkDatabase(cmd *cobra.Command) error {
	fmt.Println("[1/3] Database Health Check")
	fmt.Println("---------------------------")

	db, err := initDB(cmd)
	if err != nil {
		fmt.Printf("✗ Failed to connect: %v\n", err)
		return err
	}
	defer db.Close()

	fmt.Println("✓ Database connection established")

	// Ping database
	sqlDB, err := db.DB.DB()
	if err != nil {
		fmt.Printf("✗ Failed to get database instance: %v\n", err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		fmt.Printf("✗ Ping failed: %v\n", err)
		return err
	}

	fmt.Println("✓ Database ping successful")

	// Check connection stats
	stats := sqlDB.Stats()
	if doctorVerbose {
		fmt.Printf("  Open connections: %d\n", stats.OpenConnections)
		fmt.Printf("  In use: %d\n", stats.InUse)
		fmt.Printf("  Idle: %d\n", stats.Idle)
	}

	// Check if tables exist
	requiredTables := []interface{}{
		&models.User{},
		&models.Product{},
		&models.Transaction{},
	}

	for _, table := range requiredTables {
		if !db.Migrator().HasTable(table) {
			fmt.Printf("✗ Missing table: %T\n", table)
			return fmt.Errorf("database schema incomplete")
		}
	}

	fmt.Println("✓ All required tables present")

	// Count marketplace listings
	var productCount int64
	db.Model(&models.Product{}).Count(&productCount)
	fmt.Printf("✓ Found %d products in database\n", productCount)

	if productCount == 0 {
		fmt.Println("⚠️  Warning: No products found - run 'agriconnect migrate seed'")
	}

	return nil
}

func checkProviders(cmd *cobra.Command) error {
	fmt.Println("[2/3] LLM Provider Health Check")
	fmt.Println("-------------------------------")

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	registry := buildProviderRegistry(cfg)
	if registry.Count() == 0 {
		fmt.Println("⚠️  No LLM providers configured")
		fmt.Println("   Set OPENAI_API_KEY, ANTHROPIC_API_KEY or GOOGLE_API_KEY")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	results := registry.HealthCheck(ctx)

	healthyCount := 0
	for _, name := range registry.Names() {
		if err := results[name]; err != nil {
			fmt.Printf("%-12s ✗ UNREACHABLE (%v)\n", name+":", err)
			continue
		}
		fmt.Printf("%-12s ✓ OK\n", name+":")
		healthyCount++
	}

	fmt.Printf("\nSummary: %d/%d providers healthy\n", healthyCount, registry.Count())

	if healthyCount == 0 {
		return fmt.Errorf("no providers are reachable")
	}
	return nil
}

func checkAgents(cmd *cobra.Command) error {
	fmt.Println("[3/3] Agent Health Check")
	fmt.Println("------------------------")

	service, cleanup, err := initService(cmd)
	if err != nil {
		fmt.Printf("✗ Failed to build agent service: %v\n", err)
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results := service.HealthCheck(ctx)

	healthyCount := 0
	for _, name := range service.AgentTypes() {
		if !results[name] {
			fmt.Printf("%-20s ✗ UNHEALTHY\n", name+":")
			continue
		}
		fmt.Printf("%-20s ✓ OK\n", name+":")
		healthyCount++
	}

	fmt.Printf("\nSummary: %d/%d agents healthy\n", healthyCount, len(results))

	if healthyCount < len(results) {
		return fmt.Errorf("some agents are unhealthy")
	}
	return nil
}
