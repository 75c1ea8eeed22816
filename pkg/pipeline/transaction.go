package pipeline

import (
	"context"
	"fmt"
)

// TxState is the disposition of the transaction attached to an invocation
type TxState int

const (
	TxNotStarted TxState = iota
	TxActive
	TxCommitted
	TxRolledBack
)

func (s TxState) String() string {
	switch s {
	case TxNotStarted:
		return "not_started"
	case TxActive:
		return "active"
	case TxCommitted:
		return "committed"
	case TxRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("TxState(%d)", int(s))
	}
}

// txScope drives one connection's transaction through
// NotStarted -> Active -> Committed | RolledBack.
//
// Commit and rollback may each be attempted once. A failed commit leaves the
// scope Active so that the rollback can still be issued; a failed rollback also
// leaves it Active and the connection close discards the session.
type txScope struct {
	conn           Connection
	state          TxState
	commitCalled   bool
	rollbackCalled bool
}

func newTxScope(conn Connection) *txScope {
	return &txScope{conn: conn}
}

func (t *txScope) begin(ctx context.Context) error {
	if t.state != TxNotStarted {
		return newError(ErrTransaction, StageBegin, fmt.Errorf("%w: begin in state %s", ErrTxDone, t.state))
	}
	if err := t.conn.BeginTransaction(ctx); err != nil {
		return newError(ErrConnection, StageBegin, err)
	}
	t.state = TxActive
	return nil
}

func (t *txScope) commit(ctx context.Context) error {
	if err := t.check(StageCommit, t.commitCalled || t.rollbackCalled); err != nil {
		return err
	}
	t.commitCalled = true
	if err := t.conn.CommitTransaction(ctx); err != nil {
		return newError(ErrTransaction, StageCommit, err)
	}
	t.state = TxCommitted
	return nil
}

func (t *txScope) rollback(ctx context.Context) error {
	if err := t.check(StageRollback, t.rollbackCalled); err != nil {
		return err
	}
	t.rollbackCalled = true
	if err := t.conn.RollbackTransaction(ctx); err != nil {
		return newError(ErrTransaction, StageRollback, err)
	}
	t.state = TxRolledBack
	return nil
}

func (t *txScope) check(stage Stage, alreadyCalled bool) error {
	switch {
	case t.state == TxNotStarted:
		return newError(ErrTransaction, stage, fmt.Errorf("%w: %s before begin", ErrTxNotActive, stage))
	case t.state != TxActive || alreadyCalled:
		return newError(ErrTransaction, stage, fmt.Errorf("%w: %s in state %s", ErrTxDone, stage, t.state))
	}
	return nil
}

// active reports whether commit or rollback is still owed
func (t *txScope) active() bool {
	return t != nil && t.state == TxActive && !t.rollbackCalled
}
