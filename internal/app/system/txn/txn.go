// Package txn runs multi-document writes inside a MongoDB transaction.
//
// Transactions need a replica set or sharded cluster. Against a standalone
// mongod (typical for local development) the server rejects the session,
// and Run falls back to executing the callback without a transaction so the
// app keeps working; the fallback is logged once per call.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

// Run executes fn inside a transaction on db's client. fn must use the ctx it
// is given for every store call so the writes join the session.
//
// An error returned by fn aborts the transaction and is returned unchanged,
// so callers can still match sentinel errors with errors.Is.
func Run(ctx context.Context, db *mongo.Database, logger *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return runWithoutTxn(ctx, logger, err, fn)
		}
		return err
	}
	defer sess.EndSession(ctx)

	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	var fnErr error
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		fnErr = fn(sc)
		return nil, fnErr
	}, opts)
	if err == nil {
		return nil
	}

	// A standalone server rejects the first operation inside the session,
	// which surfaces as fn's error.
	if IsNotSupported(fnErr) || (fnErr == nil && IsNotSupported(err)) {
		return runWithoutTxn(ctx, logger, err, fn)
	}
	// fn's own error wins over the driver's wrapping.
	if fnErr != nil {
		return fnErr
	}
	return err
}

func runWithoutTxn(ctx context.Context, logger *zap.Logger, cause error, fn func(ctx context.Context) error) error {
	if logger != nil {
		logger.Warn("transactions not supported; running writes without a transaction",
			zap.Error(cause))
	}
	return fn(ctx)
}

// notSupportedCodes are server error codes returned when sessions or
// transactions cannot be used on the current deployment.
var notSupportedCodes = map[int32]struct{}{
	20:  {}, // IllegalOperation: transaction numbers only allowed on replica set members
	51:  {}, // IllegalOperation (older servers)
	263: {}, // OperationNotSupportedInTransaction
}

// IsNotSupported reports whether err means the deployment cannot run
// transactions (standalone server, unsupported storage engine, ...).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		if _, ok := notSupportedCodes[ce.Code]; ok {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "transaction") {
		return strings.Contains(msg, "session") && strings.Contains(msg, "not supported")
	}
	return strings.Contains(msg, "replica set") ||
		strings.Contains(msg, "session") ||
		strings.Contains(msg, "illegal operation") ||
		strings.Contains(msg, "not supported")
}
