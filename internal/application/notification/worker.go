package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/readify/internal/application"
	domain "github.com/Zhima-Mochi/readify/internal/domain/notification"
	domorder "github.com/Zhima-Mochi/readify/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/readify/internal/domain/outbox"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	workerService = "notification-worker"
	spanPrefix    = "Worker."
)

// Worker turns order events into ORDER notifications for the order's owner.
type Worker struct {
	service    *Service
	subscriber domoutbox.Subscriber
	tracer     observability.Tracer

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewWorker(service *Service, subscriber domoutbox.Subscriber, tel observability.Observability) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		service:      service,
		subscriber:   subscriber,
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", workerService)),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.service == nil {
		return
	}
	for _, name := range []string{
		domorder.CreatedEvent{}.EventName(),
		domorder.CancelledEvent{}.EventName(),
		domorder.PaidEvent{}.EventName(),
		domorder.StatusChangedEvent{}.EventName(),
	} {
		w.subscriber.Subscribe(name, w.handleOrderEvent)
	}
}

// orderMessage renders the notification for an order event; ok is false for events it does not know.
func orderMessage(e domoutbox.Event) (in CreateInput, ok bool) {
	switch evt := e.(type) {
	case domorder.CreatedEvent:
		return CreateInput{
			UserID:         evt.UserID,
			Title:          "Order placed",
			Content:        fmt.Sprintf("Your order %s has been placed. Total: %d VND.", evt.Code, evt.FinalAmount),
			RelatedOrderID: evt.OrderID,
		}, true
	case domorder.CancelledEvent:
		return CreateInput{
			UserID:         evt.UserID,
			Title:          "Order cancelled",
			Content:        fmt.Sprintf("Your order %s has been cancelled.", evt.Code),
			RelatedOrderID: evt.OrderID,
		}, true
	case domorder.PaidEvent:
		return CreateInput{
			UserID:         evt.UserID,
			Title:          "Payment received",
			Content:        fmt.Sprintf("We received %d VND for order %s.", evt.Amount, evt.Code),
			RelatedOrderID: evt.OrderID,
		}, true
	case domorder.StatusChangedEvent:
		return CreateInput{
			UserID:         evt.UserID,
			Title:          "Order updated",
			Content:        fmt.Sprintf("Your order %s is now %s.", evt.Code, evt.To),
			RelatedOrderID: evt.OrderID,
		}, true
	}
	return CreateInput{}, false
}

func (w *Worker) handleOrderEvent(ctx context.Context, e domoutbox.Event) (err error) {
	useCase := "notification.worker." + e.EventName()
	in, ok := orderMessage(e)
	if !ok {
		w.count(useCase, "ignored")
		return nil
	}
	in.Type = domain.TypeOrder

	ctx, span := w.tracer.Start(ctx, spanPrefix+"OrderNotification",
		attribute.String("use_case", useCase),
		attribute.String("event", e.EventName()),
		attribute.String("order.id", in.RelatedOrderID),
	)
	start := time.Now()
	outcome, status := "success", "OK"

	logger := logctx.FromOr(ctx, w.log).With(
		observability.F("use_case", useCase),
		observability.F("event", e.EventName()),
		observability.F("order_id", in.RelatedOrderID),
	)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		logger = logger.With(
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	ctx = logctx.With(ctx, logger)

	defer func() {
		lat := time.Since(start).Seconds()
		w.observe(useCase, outcome, lat)
		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", status),
			observability.F("latency_seconds", lat),
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)

		if outcome == "error" {
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		} else {
			span.SetStatus(codes.Ok, status)
		}
		span.End()
	}()

	if in.UserID == "" {
		outcome, status = "ignored", "NO_RECIPIENT"
		return nil
	}
	if _, err = w.service.CreateNotification(ctx, application.SystemActor, in); err != nil {
		outcome, status = "error", "NOTIFICATION_CREATE_FAILED"
		return fmt.Errorf("worker: create notification: %w", err)
	}
	return nil
}

func (w *Worker) count(useCase, outcome string) {
	if w.reqCounter != nil {
		w.reqCounter.Add(1,
			observability.L("use_case", useCase),
			observability.L("outcome", outcome),
		)
	}
}

func (w *Worker) observe(useCase string, outcome string, latencySeconds float64) {
	w.count(useCase, outcome)
	if w.durHistogram != nil {
		w.durHistogram.Observe(latencySeconds,
			observability.L("use_case", useCase),
		)
	}
}
