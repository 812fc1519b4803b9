package repos

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"io/fs"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"invtrack/internal/domain"
	applog "invtrack/internal/log"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate value")
	// ErrStale is returned when a conditional update matched no row because
	// the guarded column no longer holds the expected value.
	ErrStale = errors.New("row changed concurrently")
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection: serializes writers and keeps ":memory:" databases
	// shared by every query.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		return nil, err
	}

	if err := migrate(context.Background(), db); err != nil {
		return nil, err
	}
	// Seed baseline data if DB is empty (categories/products)
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	return db, nil
}

func migrate(ctx context.Context, db *sqlx.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	p, err := goose.NewProvider(goose.DialectSQLite3, db.DB, fsys)
	if err != nil {
		return err
	}
	res, err := p.Up(ctx)
	if err != nil {
		return err
	}
	for _, r := range res {
		applog.Logger().Info().Str("migration", r.Source.Path).Dur("took", r.Duration).Msg("migration applied")
	}
	return nil
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM categories`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	applog.Logger().Info().Msg("seeding demo categories/products")

	now := domain.Now()
	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()
	tx.MustExec(`INSERT INTO categories(id,name,created_at) VALUES
	  ('cat-onu','ONU',?),
	  ('cat-routers','Routers',?),
	  ('cat-cables','Cables',?)`, now, now, now)

	tx.MustExec(`INSERT INTO products(id,name,description,quantity,category,brand,model,created_at,updated_at) VALUES
	  ('prd-hg8245','ONU HG8245H','GPON terminal, 4 GE + 2 POTS',0,'ONU','Huawei','HG8245H',?,?),
	  ('prd-f670l','ONU F670L','Dual-band GPON ONT',0,'ONU','ZTE','F670L',?,?),
	  ('prd-archer-c6','Archer C6','AC1200 router',12,'Routers','TP-Link','Archer C6',?,?),
	  ('prd-drop-1km','Drop cable 1km','FTTH drop cable reel',4,'Cables','','',?,?)`,
		now, now, now, now, now, now, now, now)

	return tx.Commit()
}

// notFound maps sql.ErrNoRows to ErrNotFound and leaves other errors alone.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// uniqueViolation maps sqlite UNIQUE constraint failures to ErrDuplicate.
func uniqueViolation(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicate
	}
	return err
}

// affected returns ErrNotFound when a statement touched no rows.
func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
