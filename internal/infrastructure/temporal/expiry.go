// Package temporal runs the delayed cancellation of unpaid online orders as a Temporal workflow.
package temporal

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	sdktemporal "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

const (
	TaskQueue = "readify-orders"

	WorkflowPaymentExpiry = "PaymentExpiryWorkflow"
	ActivityExpireOrder   = "ExpireOrder"
)

type ExpiryInput struct {
	OrderID string
	After   time.Duration
}

// PaymentExpiryWorkflow waits out the payment window and then asks the order service to
// cancel the order if it is still unpaid.
func PaymentExpiryWorkflow(ctx workflow.Context, in ExpiryInput) (bool, error) {
	logger := workflow.GetLogger(ctx)
	if err := workflow.Sleep(ctx, in.After); err != nil {
		return false, err
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &sdktemporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
		},
	})
	var expired bool
	if err := workflow.ExecuteActivity(ctx, ActivityExpireOrder, in.OrderID).Get(ctx, &expired); err != nil {
		logger.Error("order expiry failed", "OrderID", in.OrderID, "Error", err)
		return false, err
	}
	logger.Info("order expiry checked", "OrderID", in.OrderID, "Expired", expired)
	return expired, nil
}

// Expirer is satisfied by the order service.
type Expirer interface {
	ExpireUnpaidOrder(ctx context.Context, id string) (bool, error)
}

type Activities struct {
	orders Expirer
}

func NewActivities(orders Expirer) *Activities {
	return &Activities{orders: orders}
}

func (a *Activities) ExpireOrder(ctx context.Context, orderID string) (bool, error) {
	return a.orders.ExpireUnpaidOrder(ctx, orderID)
}

// Registry is implemented by worker.Worker and by the SDK test environment.
type Registry interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Register adds the workflow and its activity to r under their stable names.
func Register(r Registry, orders Expirer) {
	r.RegisterWorkflowWithOptions(PaymentExpiryWorkflow, workflow.RegisterOptions{Name: WorkflowPaymentExpiry})
	r.RegisterActivityWithOptions(NewActivities(orders).ExpireOrder, activity.RegisterOptions{Name: ActivityExpireOrder})
}

// NewWorker builds a worker on TaskQueue with the expiry workflow registered.
func NewWorker(c client.Client, orders Expirer) worker.Worker {
	w := worker.New(c, TaskQueue, worker.Options{})
	Register(w, orders)
	return w
}

type workflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// Scheduler starts one expiry workflow per order. The workflow id is derived from the order
// id, so scheduling the same order twice is rejected by the server.
type Scheduler struct {
	starter workflowStarter
}

func NewScheduler(c client.Client) *Scheduler {
	return &Scheduler{starter: c}
}

func WorkflowID(orderID string) string { return "order-expiry-" + orderID }

func (s *Scheduler) ScheduleExpiry(ctx context.Context, orderID string, after time.Duration) error {
	opts := client.StartWorkflowOptions{
		ID:                 WorkflowID(orderID),
		TaskQueue:          TaskQueue,
		WorkflowRunTimeout: after + time.Hour,
	}
	if _, err := s.starter.ExecuteWorkflow(ctx, opts, WorkflowPaymentExpiry, ExpiryInput{OrderID: orderID, After: after}); err != nil {
		return fmt.Errorf("temporal: schedule expiry for %s: %w", orderID, err)
	}
	return nil
}
