// internal/driver/simulator/operation.go
package simulator

import (
	"context"
	"errors"
	"sync"
	"time"

	"terminal-bridge/internal/model"
)

// ErrCanceled is the outcome of a canceled simulated operation
var ErrCanceled = errors.New("the operation was canceled")

// operation is a cancelable simulated SDK call
type operation struct {
	done       chan struct{}
	canceled   chan struct{}
	cancelOnce sync.Once
	settleOnce sync.Once
}

func newOperation() *operation {
	return &operation{
		done:     make(chan struct{}),
		canceled: make(chan struct{}),
	}
}

// Cancel requests the operation to stop. Canceling a settled operation is a no-op.
func (o *operation) Cancel(ctx context.Context) error {
	select {
	case <-o.done:
		return nil
	default:
	}
	o.cancelOnce.Do(func() { close(o.canceled) })
	return nil
}

func (o *operation) Done() <-chan struct{} {
	return o.done
}

func (o *operation) settle() {
	o.settleOnce.Do(func() { close(o.done) })
}

// wait sleeps for d. It reports false when the operation is canceled first.
func (o *operation) wait(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-o.canceled:
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-o.canceled:
		return false
	}
}

// pendingCollection is a simulated collect-payment-method call
type pendingCollection struct {
	*operation
	intent *model.PaymentIntent
	err    error
}

func (p *pendingCollection) Result() (*model.PaymentIntent, error) {
	<-p.done
	return p.intent, p.err
}

// sleepContext sleeps for d unless ctx ends first
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
