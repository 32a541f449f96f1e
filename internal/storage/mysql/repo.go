package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"trip_planner/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Open connects with the settings the repo relies on (parseTime, UTC) and pings.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ListLocationCodes returns every alias -> city code row.
func (r *Repo) ListLocationCodes(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, listLocationCodesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var alias, code string
		if err := rows.Scan(&alias, &code); err != nil {
			return nil, err
		}
		out[alias] = code
	}
	return out, rows.Err()
}

func (r *Repo) UpsertLocationCodes(ctx context.Context, codes map[string]string) error {
	if len(codes) == 0 {
		return nil
	}
	values := make([]string, 0, len(codes))
	args := make([]any, 0, len(codes)*2)
	for alias, code := range codes {
		values = append(values, "(?,?)")
		args = append(args, strings.ToLower(strings.TrimSpace(alias)), strings.ToUpper(strings.TrimSpace(code)))
	}
	_, err := r.db.ExecContext(ctx, upsertLocationCodesPrefix+strings.Join(values, ",")+upsertLocationCodesOnDup, args...)
	return err
}

// RecordSearch stores a run and its per-provider outcomes in one transaction.
func (r *Repo) RecordSearch(ctx context.Context, run domain.SearchRun) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertRunSQL,
		run.ID,
		run.Destination,
		run.CheckIn,
		run.CheckOut,
		run.Adults,
		run.Kids,
		run.Budget,
		run.Listings,
	); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	if len(run.Outcomes) > 0 {
		values := make([]string, 0, len(run.Outcomes))
		args := make([]any, 0, len(run.Outcomes)*5)
		for _, oc := range run.Outcomes {
			values = append(values, "(?,?,?,?,?)")
			args = append(args, run.ID, string(oc.Provider), string(oc.Outcome), oc.Listings, oc.ElapsedMS)
		}
		if _, err := tx.ExecContext(ctx, insertOutcomesPrefix+strings.Join(values, ","), args...); err != nil {
			return fmt.Errorf("insert outcomes for run %s: %w", run.ID, err)
		}
	}
	return tx.Commit()
}

// RecentSearches returns the newest runs first, each with its outcomes.
func (r *Repo) RecentSearches(ctx context.Context, limit int) ([]domain.SearchRun, error) {
	rows, err := r.db.QueryContext(ctx, recentRunsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.SearchRun{}
	index := map[string]int{}
	for rows.Next() {
		var run domain.SearchRun
		if err := rows.Scan(
			&run.ID,
			&run.Destination,
			&run.CheckIn, &run.CheckOut,
			&run.Adults, &run.Kids,
			&run.Budget,
			&run.Listings,
			&run.CreatedAt,
		); err != nil {
			return nil, err
		}
		run.Outcomes = []domain.RunOutcome{}
		index[run.ID] = len(out)
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	marks := make([]string, 0, len(out))
	args := make([]any, 0, len(out))
	for _, run := range out {
		marks = append(marks, "?")
		args = append(args, run.ID)
	}
	orows, err := r.db.QueryContext(ctx,
		outcomesForRunsPrefix+"("+strings.Join(marks, ",")+") ORDER BY run_id, provider", args...)
	if err != nil {
		return nil, err
	}
	defer orows.Close()

	for orows.Next() {
		var (
			runID, provider, outcome string
			oc                       domain.RunOutcome
		)
		if err := orows.Scan(&runID, &provider, &outcome, &oc.Listings, &oc.ElapsedMS); err != nil {
			return nil, err
		}
		oc.Provider = domain.Source(provider)
		oc.Outcome = domain.ErrorKind(outcome)
		if i, ok := index[runID]; ok {
			out[i].Outcomes = append(out[i].Outcomes, oc)
		}
	}
	return out, orows.Err()
}
