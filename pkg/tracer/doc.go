// Package tracer installs an OpenTelemetry TracerProvider for the service.
//
// The pipeline package creates its spans through the global provider, so once
// NewClient (or FXModule) has run every ExecuteStatement and ExecuteInTransaction
// invocation is exported as a span carrying its mode, operation name, item count
// and transaction disposition. Logs written with the logger's *WithContext
// variants inside such a span carry matching trace_id and span_id fields.
//
// Basic Usage:
//
//	tr := tracer.NewClient(tracer.Config{
//		ServiceName:  "goals",
//		AppEnv:       "production",
//		EnableExport: true,
//		Endpoint:     "otel-collector:4318",
//	}, log)
//	defer tr.Shutdown(context.Background())
//
//	ctx, span := tr.StartSpan(ctx, "goal.import")
//	defer span.End()
//
//	if err := repo.InsertMany(ctx, goals); err != nil {
//		tr.RecordErrorOnSpan(span, err)
//	}
//
// Trace context crosses process boundaries with GetCarrier and SetCarrierOnContext.
//
// FX Module Integration:
//
//	app := fx.New(
//		logger.FXModule,
//		tracer.FXModule,
//		// ...
//	)
//
// All methods on Tracer are safe for concurrent use.
package tracer
