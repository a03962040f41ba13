package commands

import (
	"fmt"

	"github.com/biodoia/agriconnect/internal/agents"
	"github.com/biodoia/agriconnect/internal/notifications"
	"github.com/biodoia/agriconnect/pkg/config"
	"github.com/biodoia/agriconnect/pkg/database"
	"github.com/spf13/cobra"
)

// AgentsCmd rappresenta il comando agents
var AgentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Inspect marketplace agents",
	Long: `Inspect the agents available in the AgriConnect runtime.

This command lists the specialized agents and the actions each one
can perform, without starting the HTTP gateway.`,
	Example: `  # List all agents
  agriconnect agents list

  # Show what the logistics agent can do
  agriconnect agents capabilities logistics

  # Aliases are resolved too
  agriconnect agents capabilities qa`,
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available agents",
	Long:  `List the canonical names of all agents in the runtime.`,
	RunE:  runAgentsList,
}

var agentsCapabilitiesCmd = &cobra.Command{
	Use:   "capabilities <agent>",
	Short: "Show agent actions",
	Long:  `Show the actions a specific agent can perform.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsCapabilities,
}

func init() {
	AgentsCmd.AddCommand(agentsListCmd)
	AgentsCmd.AddCommand(agentsCapabilitiesCmd)
}

func runAgentsList(cmd *cobra.Command, args []string) error {
	service, cleanup, err := initService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Println("AgriConnect Agents")
	fmt.Println("==================")
	fmt.Println()

	for _, name := range service.AgentTypes() {
		actions, err := service.Capabilities(name)
		if err != nil {
			return err
		}
		fmt.Printf("%-20s %d actions\n", name, len(actions))
	}

	return nil
}

func runAgentsCapabilities(cmd *cobra.Command, args []string) error {
	service, cleanup, err := initService(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	actions, err := service.Capabilities(args[0])
	if err != nil {
		return fmt.Errorf("unknown agent %q, try 'agriconnect agents list'", args[0])
	}

	fmt.Printf("Actions for %s:\n", args[0])
	for _, action := range actions {
		fmt.Printf("  • %s\n", action)
	}

	return nil
}

// initService costruisce il runtime degli agenti per i comandi CLI. I
// provider LLM vengono registrati solo se configurati; i comandi di
// ispezione funzionano anche senza.
func initService(cmd *cobra.Command) (*agents.Service, func(), error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	service, err := agents.NewService(&agents.Runtime{
		Registry: buildProviderRegistry(cfg),
		Store:    db,
		Notifier: notifications.New(db),
	}, agents.SupervisorConfig{
		AmountThreshold: cfg.Review.AmountThreshold,
		ReviewMarkers:   cfg.Review.Markers,
	})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to build agent service: %w", err)
	}

	return service, func() { db.Close() }, nil
}

func initDB(cmd *cobra.Command) (*database.DB, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return database.New(&cfg.Database)
}
