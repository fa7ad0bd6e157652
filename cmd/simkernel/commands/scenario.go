package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roasbeef/simkernel/internal/scenario"
	"github.com/spf13/cobra"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Manage the named scenario catalog",
}

var scenarioSaveDescription string

var scenarioSaveCmd = &cobra.Command{
	Use:   "save [name] [config.yaml]",
	Short: "Save a scenario definition under a name",
	Args:  cobra.ExactArgs(2),
	RunE:  runScenarioSave,
}

var scenarioListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved scenario definitions",
	Args:  cobra.NoArgs,
	RunE:  runScenarioList,
}

var scenarioGetCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "Print a saved scenario's configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runScenarioGet,
}

var scenarioDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a saved scenario",
	Args:  cobra.ExactArgs(1),
	RunE:  runScenarioDelete,
}

func init() {
	scenarioSaveCmd.Flags().StringVar(
		&scenarioSaveDescription, "description", "",
		"human-readable description of the scenario",
	)

	scenarioCmd.AddCommand(scenarioSaveCmd)
	scenarioCmd.AddCommand(scenarioListCmd)
	scenarioCmd.AddCommand(scenarioGetCmd)
	scenarioCmd.AddCommand(scenarioDeleteCmd)
}

func openCatalog() (*scenario.Store, error) {
	path, err := expandPath(scenarioDBPath)
	if err != nil {
		return nil, err
	}

	return scenario.Open(path)
}

func expandPath(path string) (string, error) {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}

		return filepath.Join(home, path[2:]), nil
	}

	return path, nil
}

func runScenarioSave(cmd *cobra.Command, args []string) error {
	name, cfgPath := args[0], args[1]

	body, err := os.ReadFile(cfgPath)
	if err != nil {
		return fmt.Errorf("scenario save: read %q: %w", cfgPath, err)
	}

	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()

	def := scenario.Definition{
		Name:        name,
		Description: scenarioSaveDescription,
		ConfigYAML:  string(body),
	}

	if err := store.Save(context.Background(), def); err != nil {
		return err
	}

	fmt.Printf("saved scenario %q\n", name)

	return nil
}

func runScenarioList(cmd *cobra.Command, args []string) error {
	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()

	defs, err := store.List(context.Background())
	if err != nil {
		return err
	}

	for _, def := range defs {
		fmt.Printf("%-24s %s\n", def.Name, def.Description)
	}

	return nil
}

func runScenarioGet(cmd *cobra.Command, args []string) error {
	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()

	def, err := store.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Println(def.ConfigYAML)

	return nil
}

func runScenarioDelete(cmd *cobra.Command, args []string) error {
	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(context.Background(), args[0]); err != nil {
		return err
	}

	fmt.Printf("deleted scenario %q\n", args[0])

	return nil
}
