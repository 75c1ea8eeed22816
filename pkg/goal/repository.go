package goal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Aleph-Alpha/sqlpipe/pkg/pipeline"
	"golang.org/x/sync/errgroup"
)

const (
	selectAll  = "select id, name from goal order by id"
	selectByID = "select id, name from goal where id = $1"
	insertOne  = "insert into goal (name) values ($1)"
	updateName = "update goal set name = $1 where id = $2"
	deleteByID = "delete from goal where id = $1"
	deleteAll  = "delete from goal"
	countAll   = "select count(*) from goal"
)

var ddl = map[Dialect]string{
	DialectPostgres: "create table if not exists goal (id bigserial primary key, name text not null)",
	DialectSQLite:   "create table if not exists goal (id integer primary key autoincrement, name text not null)",
}

func mapGoal(row pipeline.Row, _ pipeline.RowMetadata) (Goal, error) {
	var g Goal
	if err := row.Get("id", &g.ID); err != nil {
		return g, err
	}
	if err := row.Get("name", &g.Name); err != nil {
		return g, err
	}
	return g, nil
}

// Migrate creates the goal table inside a transaction
func (r *Repository) Migrate(ctx context.Context) error {
	stmt, ok := ddl[r.dialect]
	if !ok {
		return fmt.Errorf("no goal table definition for dialect %q", r.dialect)
	}
	_, err := pipeline.Collect(pipeline.ExecuteInTransaction(ctx, r.ops.Source(),
		pipeline.Exec(pipeline.NewStatement(stmt)), r.ops.Options(pipeline.WithOperation("goal.migrate"))...))
	if err != nil {
		return err
	}
	r.logger.Info("goal table ready", nil, map[string]interface{}{"dialect": string(r.dialect)})
	return nil
}

// FindAll streams every goal in id order. The connection stays open until the
// stream is drained or closed.
func (r *Repository) FindAll(ctx context.Context) *pipeline.Stream[Goal] {
	return pipeline.ExecuteStatement(ctx, r.ops.Source(),
		pipeline.Query(pipeline.NewStatement(selectAll), mapGoal),
		r.ops.Options(pipeline.WithOperation("goal.find_all"))...)
}

// FindByID returns the goal with id or ErrNotFound
func (r *Repository) FindByID(ctx context.Context, id int64) (Goal, error) {
	g, ok, err := pipeline.First(pipeline.ExecuteStatement(ctx, r.ops.Source(),
		pipeline.Query(pipeline.NewStatement(selectByID, id), mapGoal),
		r.ops.Options(pipeline.WithOperation("goal.find_by_id"))...))
	if err != nil {
		return Goal{}, err
	}
	if !ok {
		return Goal{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return g, nil
}

// FindByIDs looks ids up concurrently, each on its own connection, and returns
// the goals found in the order of ids. Unknown ids are skipped.
func (r *Repository) FindByIDs(ctx context.Context, ids []int64) ([]Goal, error) {
	found := make([]*Goal, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			goal, err := r.FindByID(gctx, id)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			found[i] = &goal
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Goal, 0, len(ids))
	for _, goal := range found {
		if goal != nil {
			out = append(out, *goal)
		}
	}
	return out, nil
}

// Save updates the goal when its id exists and inserts it otherwise, in one
// transaction. The stored goal is returned.
func (r *Repository) Save(ctx context.Context, goal Goal) (Goal, error) {
	var saved Goal
	err := pipeline.Transact(ctx, r.ops.Source(), func(ctx context.Context, s *pipeline.Session) error {
		id := goal.ID
		if id > 0 {
			n, err := s.Exec(ctx, pipeline.NewStatement(updateName, goal.Name, id))
			if err != nil {
				return err
			}
			if n == 0 {
				id = 0
			}
		}

		if id == 0 {
			ids, err := pipeline.QueryAll(ctx, s,
				pipeline.NewStatement(insertOne, goal.Name).ReturnGeneratedValues(r.ops.Config().GeneratedKeyColumn),
				pipeline.Scalar[int64]())
			if err != nil {
				return err
			}
			if len(ids) != 1 {
				return fmt.Errorf("%w: insert returned %d keys", pipeline.ErrCardinality, len(ids))
			}
			id = ids[0]
		}

		stored, err := pipeline.QueryAll(ctx, s, pipeline.NewStatement(selectByID, id), mapGoal)
		if err != nil {
			return err
		}
		if len(stored) != 1 {
			return fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
		saved = stored[0]
		return nil
	}, r.ops.Options(pipeline.WithOperation("goal.save"))...)
	if err != nil {
		return Goal{}, err
	}

	r.logger.Debug("goal saved", nil, map[string]interface{}{
		"goal_id": saved.ID,
		"updated": goal.ID == saved.ID,
	})
	return saved, nil
}

// Delete removes the goal with id and reports how many rows went away
func (r *Repository) Delete(ctx context.Context, id int64) (int64, error) {
	return r.ops.Delete(ctx, deleteByID, id)
}

// DeleteAll empties the table
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	return r.ops.Delete(ctx, deleteAll)
}

// Count returns the number of stored goals
func (r *Repository) Count(ctx context.Context) (int64, error) {
	return pipeline.Single(pipeline.Select(ctx, r.ops, countAll, pipeline.Scalar[int64]()))
}

// InsertMany inserts names in one transaction, batchSize rows per statement.
// Either every name is stored or none is.
func (r *Repository) InsertMany(ctx context.Context, names []string) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}

	var batches []pipeline.Work[int64]
	for start := 0; start < len(names); start += r.batchSize {
		end := min(start+r.batchSize, len(names))
		batches = append(batches, pipeline.Exec(insertBatch(names[start:end])))
	}

	var total int64
	stream := pipeline.ExecuteInTransaction(ctx, r.ops.Source(), pipeline.Concat(batches...),
		r.ops.Options(pipeline.WithOperation("goal.insert_many"))...)
	for n, err := range stream.All() {
		if err != nil {
			return 0, err
		}
		total += n
	}

	r.logger.Info("goals inserted", nil, map[string]interface{}{
		"count":   total,
		"batches": len(batches),
	})
	return total, nil
}

func insertBatch(names []string) pipeline.Statement {
	var sb strings.Builder
	sb.WriteString("insert into goal (name) values ")

	params := make([]any, len(names))
	for i, name := range names {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "($%d)", i+1)
		params[i] = name
	}
	return pipeline.NewStatement(sb.String(), params...)
}
