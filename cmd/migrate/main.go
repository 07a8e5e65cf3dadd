package main

import (
	"context"
	"crypto/sha256"
	"embed"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"

	"github.com/cashflow-ai/cashflow-backend/internal/app"
	"github.com/cashflow-ai/cashflow-backend/internal/logger"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migration represents a single migration file
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// Target names the dataset and transactions table migrations apply to.
type Target struct {
	ProjectID string
	DatasetID string
	TableID   string
}

// migrationPattern matches migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("CASHFLOW_CONFIG"), "path to a YAML config file (or set CASHFLOW_CONFIG env)")
		projectID  = flag.String("project", "", "GCP project ID (default bigquery.project_id)")
		datasetID  = flag.String("dataset", "", "BigQuery dataset ID (default bigquery.dataset)")
		tableID    = flag.String("table", "", "transactions table ID (default bigquery.table)")
		appliedBy  = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
		dryRun     = flag.Bool("dry-run", false, "list pending migrations without applying them")
	)
	flag.Parse()

	cfg, log, err := app.Load(*configPath, "cashflow-migrate")
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	target := Target{
		ProjectID: firstNonEmpty(*projectID, cfg.BigQuery.ProjectID),
		DatasetID: firstNonEmpty(*datasetID, cfg.BigQuery.Dataset),
		TableID:   firstNonEmpty(*tableID, cfg.BigQuery.Table),
	}
	if target.ProjectID == "" {
		log.Fatal().Msg("A GCP project is required: pass -project or set bigquery.project_id")
	}

	migrations, err := readMigrations(embeddedMigrations, "migrations", target)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	log.Info().Int("count", len(migrations)).Msg("Found migration files")

	ctx := context.Background()

	client, err := bigquery.NewClient(ctx, target.ProjectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	log.Info().Str("project", target.ProjectID).Str("dataset", target.DatasetID).Msg("Connected to BigQuery")

	if err := ensureSchemaMigrationsTable(ctx, client, target); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure schema_migrations table")
	}

	applied, err := getAppliedMigrations(ctx, client, target)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get applied migrations")
	}
	log.Info().Int("count", len(applied)).Msg("Found already applied migrations")

	pending := pendingMigrations(migrations, applied, log)

	if *dryRun {
		for _, m := range pending {
			log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Pending migration")
		}
		return
	}

	for _, m := range pending {
		mlog := log.With().Int("version", m.Version).Str("name", m.Name).Logger()
		mlog.Info().Msg("Applying migration")

		if err := runQuery(ctx, client.Query(m.SQL)); err != nil {
			mlog.Fatal().Err(err).Msg("Failed to execute migration")
		}
		if err := recordMigration(ctx, client, target, m, *appliedBy); err != nil {
			mlog.Fatal().Err(err).Msg("Failed to record migration")
		}

		mlog.Info().Msg("Migration applied")
	}

	if len(pending) == 0 {
		log.Info().Msg("No new migrations to apply. Dataset is up to date.")
	} else {
		log.Info().Int("count", len(pending)).Msg("Successfully applied migrations")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// readMigrations reads all migration files in dir, substitutes the target
// placeholders and returns them sorted by version. Files not matching
// migrationPattern are ignored.
func readMigrations(fsys fs.FS, dir string, target Target) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	replacer := strings.NewReplacer(
		"{{PROJECT_ID}}", target.ProjectID,
		"{{DATASET_ID}}", target.DatasetID,
		"{{TABLE_ID}}", target.TableID,
	)

	var migrations []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		matches := migrationPattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}

		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %04d: %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, dir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", entry.Name(), err)
		}

		// The checksum covers the file as written, so retargeting a
		// migration to another dataset is not reported as a change.
		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: entry.Name(),
			SQL:      replacer.Replace(string(content)),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// pendingMigrations returns the migrations not yet applied, warning when an
// applied migration's file changed since.
func pendingMigrations(migrations []Migration, applied []AppliedMigration, log zerolog.Logger) []Migration {
	byVersion := make(map[int]AppliedMigration, len(applied))
	for _, am := range applied {
		byVersion[am.Version] = am
	}

	var pending []Migration
	for _, m := range migrations {
		am, ok := byVersion[m.Version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if am.Checksum != "" && am.Checksum != m.Checksum {
			log.Warn().Int("version", m.Version).Str("name", m.Name).Msg("Applied migration was modified after it ran")
		}
	}
	return pending
}

func tableName(target Target, table string) string {
	return fmt.Sprintf("`%s.%s.%s`", target.ProjectID, target.DatasetID, table)
}

// ensureSchemaMigrationsTable creates the schema_migrations table if it doesn't exist
func ensureSchemaMigrationsTable(ctx context.Context, client *bigquery.Client, target Target) error {
	sql := `
		CREATE TABLE IF NOT EXISTS ` + tableName(target, "schema_migrations") + ` (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`
	return runQuery(ctx, client.Query(sql))
}

// getAppliedMigrations retrieves the list of already applied migrations
func getAppliedMigrations(ctx context.Context, client *bigquery.Client, target Target) ([]AppliedMigration, error) {
	sql := `
		SELECT version, name, applied_at, checksum, applied_by
		FROM ` + tableName(target, "schema_migrations") + `
		ORDER BY version ASC
	`

	it, err := client.Query(sql).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64
			Name      string
			AppliedAt time.Time
			Checksum  bigquery.NullString
			AppliedBy bigquery.NullString
		}

		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}

		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}

	return applied, nil
}

// recordMigration records a successfully applied migration in schema_migrations
func recordMigration(ctx context.Context, client *bigquery.Client, target Target, m Migration, appliedBy string) error {
	query := client.Query(`
		INSERT INTO ` + tableName(target, "schema_migrations") + `
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`)
	query.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: appliedBy},
	}
	return runQuery(ctx, query)
}

// runQuery runs a DDL or DML statement and waits for it to finish.
func runQuery(ctx context.Context, query *bigquery.Query) error {
	job, err := query.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}
