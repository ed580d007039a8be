// Package observability provides OpenTelemetry tracing and metrics for
// spacekit clients.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
// Every transport attempt of a client is one http.request span carrying the
// method, URL, space, request id and, for resends, the resend count:
//
//	ctx, span := observability.StartClientSpan(ctx, tp, observability.ClientSpan{
//	    Method: "GET", URL: u, Space: "shop", Attempt: 2,
//	})
//	observability.EndClientSpan(span, 503, "server", err)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &cfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewClientMetrics(observability.Meter("spacekit"))
//	metrics.RecordRequestEnd(ctx, "GET", 200, duration)
package observability
