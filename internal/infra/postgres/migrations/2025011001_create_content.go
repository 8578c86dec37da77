package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_content.sql
var createContentSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createContentSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`
				DROP TABLE IF EXISTS lesson_progress;
				DROP TABLE IF EXISTS questions;
				DROP TABLE IF EXISTS paragraphs;
				DROP TABLE IF EXISTS materials;
				DROP TABLE IF EXISTS lessons;
				DROP TABLE IF EXISTS categories;`)
			return err
		},
	)
}
