package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"transferScope/internal/address"
	"transferScope/internal/metrics"
	"transferScope/internal/model"
)

// Observer is a best-effort hook run after each record is built.
// Its errors are logged and dropped. Implementations must return once ctx is
// done: IsolatedObserver stops waiting at its timeout, but a call that ignores
// ctx keeps its goroutine alive until it returns.
type Observer interface {
	Observe(ctx context.Context, record model.TransferRecord, decoded model.DecodedTransfer) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, record model.TransferRecord, decoded model.DecodedTransfer) error

func (f ObserverFunc) Observe(ctx context.Context, record model.TransferRecord, decoded model.DecodedTransfer) error {
	return f(ctx, record, decoded)
}

const defaultObserverTimeout = 2 * time.Second

// IsolatedObserver bounds an Observer with a per-call timeout and recovers its panics.
// The inner call receives a context carrying that timeout.
type IsolatedObserver struct {
	inner   Observer
	timeout time.Duration
	logger  *zap.Logger
}

func NewIsolatedObserver(inner Observer, timeout time.Duration, logger *zap.Logger) *IsolatedObserver {
	if timeout <= 0 {
		timeout = defaultObserverTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IsolatedObserver{inner: inner, timeout: timeout, logger: logger}
}

// Observe never returns an error; failures are logged and counted.
func (o *IsolatedObserver) Observe(ctx context.Context, record model.TransferRecord, decoded model.DecodedTransfer) error {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("observer panic: %v", r)
			}
		}()
		done <- o.inner.Observe(callCtx, record, decoded)
	}()

	var err error
	select {
	case err = <-done:
	case <-callCtx.Done():
		err = callCtx.Err()
	}
	if err == nil {
		return nil
	}

	reason := "error"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = "timeout"
	case errors.Is(err, context.Canceled):
		reason = "canceled"
	}
	metrics.ObserverFailures.WithLabelValues(reason).Inc()
	o.logger.Warn("observer failed",
		zap.String("log_id", record.ID),
		zap.String("reason", reason),
		zap.Error(err),
	)
	return nil
}

func (b *Builder) observe(ctx context.Context, record model.TransferRecord, decoded model.DecodedTransfer) {
	if b.opts.Observer == nil {
		return
	}
	_ = b.opts.Observer.Observe(ctx, record, decoded)
}

// BalanceSource reads the current token balance of an account.
type BalanceSource interface {
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
}

// BalanceObserver logs the head balances of both transfer parties.
type BalanceObserver struct {
	balances BalanceSource
	logger   *zap.Logger
}

func NewBalanceObserver(balances BalanceSource, logger *zap.Logger) *BalanceObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BalanceObserver{balances: balances, logger: logger}
}

func (o *BalanceObserver) Observe(ctx context.Context, record model.TransferRecord, decoded model.DecodedTransfer) error {
	fromBalance, err := o.balances.BalanceOf(ctx, decoded.From)
	if err != nil {
		return fmt.Errorf("balance of %s: %w", address.FromAddress(decoded.From), err)
	}
	toBalance, err := o.balances.BalanceOf(ctx, decoded.To)
	if err != nil {
		return fmt.Errorf("balance of %s: %w", address.FromAddress(decoded.To), err)
	}
	o.logger.Info("transfer balances",
		zap.String("log_id", record.ID),
		zap.String("from", record.From),
		zap.String("from_balance", fromBalance.String()),
		zap.String("to", record.To),
		zap.String("to_balance", toBalance.String()),
	)
	return nil
}
