package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
	"github.com/kirillkom/legal-workflow/internal/infrastructure/repository/postgres"
)

var seedFlags struct {
	tenant string
	file   string
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the task status catalog and the unclassified event for a tenant",
	RunE:  runSeed,
}

func init() {
	f := seedCmd.Flags()
	f.StringVar(&seedFlags.tenant, "tenant", "", "Tenant id (required)")
	f.StringVar(&seedFlags.file, "file", cfg.SeedFile, "Seed YAML file")

	_ = seedCmd.MarkFlagRequired("tenant")
}

type seedFile struct {
	Statuses []postgres.StatusSeed `yaml:"status"`
}

// parseSeed requires every workflow status to be present so the task state
// machine always finds its targets.
func parseSeed(r io.Reader) ([]postgres.StatusSeed, error) {
	var seed seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	present := make(map[domain.TaskStatus]bool, len(seed.Statuses))
	for i, status := range seed.Statuses {
		parsed, ok := domain.ParseTaskStatus(status.Name)
		if !ok {
			return nil, fmt.Errorf("seed status %q is not a workflow status", status.Name)
		}
		seed.Statuses[i].Name = string(parsed)
		present[parsed] = true
	}
	for _, status := range domain.TaskStatusFlow {
		if !present[status] {
			return nil, fmt.Errorf("seed is missing status %q", status)
		}
	}
	return seed.Statuses, nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	tenant, err := domain.NewTenant(seedFlags.tenant)
	if err != nil {
		return err
	}
	f, err := os.Open(seedFlags.file)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	statuses, err := parseSeed(f)
	if err != nil {
		return err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	if err := postgres.NewCatalogRepository(db).SeedCatalog(cmd.Context(), tenant, statuses); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d statuses for tenant %s\n", len(statuses), tenant)
	return nil
}
