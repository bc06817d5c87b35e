package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stagegate/stagegate/internal/db"
	"github.com/stagegate/stagegate/internal/queue"
)

var minimal bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a stagegate project",
	Long:  "Initialize project: processes/ registry, sample definition, PostgreSQL schema, Redis stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		reg := openRegistry()

		if err := reg.Init(); err != nil {
			return err
		}
		fmt.Println("Created processes/ directory")

		samplePath := reg.Path("sample")
		if _, err := os.Stat(samplePath); os.IsNotExist(err) {
			sample := `# Sample process: a document moving from draft to published.
name: sample
initial_stage: draft
final_stage: published
stage_property: status
regression_policy: warn
stages:
  - id: draft
    name: Draft
    schema:
      title:
        type: string
        required: true
    gates:
      - name: submit
        target: review
        locks:
          - name: has_body
            kind: not_empty
            property: body
  - id: review
    name: Review
    gates:
      - name: approve
        target: published
        locks:
          - name: approved
            kind: equals
            property: approved
            value: true
      - name: reject
        target: draft
        locks:
          - name: rejected
            kind: equals
            property: approved
            value: false
  - id: published
    name: Published
    final: true
`
			if err := os.WriteFile(samplePath, []byte(sample), 0644); err != nil {
				return fmt.Errorf("create sample definition: %w", err)
			}
			fmt.Println("Created processes/sample.yaml")
		} else {
			fmt.Println("processes/sample.yaml already exists")
		}

		if minimal {
			fmt.Println("\nMinimal init complete. Run 'stagegate init' (without --minimal) to set up PostgreSQL and Redis.")
			return nil
		}

		fmt.Println("Connecting to PostgreSQL...")
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer pool.Close()

		fmt.Println("Running migrations...")
		if err := db.Migrate(ctx, pool, migrationsDir()); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Println("PostgreSQL schema created")

		fmt.Println("Connecting to Redis...")
		rdb, err := connectRedis()
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer rdb.Close()

		q := queue.New(rdb)
		if err := q.EnsureStream(ctx); err != nil {
			return fmt.Errorf("redis stream setup failed: %w", err)
		}
		fmt.Println("Redis stream created")

		fmt.Println("\nstagegate project initialized successfully.")
		fmt.Println("Next steps:")
		fmt.Println("  1. Edit processes/sample.yaml or add your own definition")
		fmt.Println("  2. Run: stagegate check sample")
		fmt.Println("  3. Run: stagegate evaluate sample <element.json>")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&minimal, "minimal", false, "Minimal init: processes/ and sample definition only")
}
