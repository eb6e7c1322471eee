package staticrefl

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	errs "github.com/jward/staticrefl/internal/errors"
)

const tracerName = "github.com/jward/staticrefl"

// Status label values.
const (
	statusOK        = "ok"
	statusNotFound  = "not_found"
	statusInvalid   = "invalid"
	statusError     = "error"
	statusIndexed   = "indexed"
	statusUnchanged = "unchanged"
	statusSkipped   = "skipped"
)

// Package-level metrics, registered with the default registry.
var (
	// reflectTotal counts ReflectClass calls.
	//
	// Labels:
	//   - status: "ok", "not_found", "invalid" or "error"
	reflectTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staticrefl",
			Name:      "reflect_total",
			Help:      "Total number of class reflection requests.",
		},
		[]string{"status"},
	)

	// indexFilesTotal counts files seen by indexing.
	//
	// Labels:
	//   - status: "indexed", "unchanged", "skipped" or "error"
	indexFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staticrefl",
			Name:      "index_files_total",
			Help:      "Total number of files processed by indexing.",
		},
		[]string{"status"},
	)

	// resolveTotal counts class to file lookups through the resolver chain.
	//
	// Labels:
	//   - status: "ok", "not_found" or "error"
	resolveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "staticrefl",
			Name:      "resolve_total",
			Help:      "Total number of class name resolutions.",
		},
		[]string{"status"},
	)
)

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// statusOf maps an error to a label-safe status.
func statusOf(err error) string {
	switch {
	case err == nil:
		return statusOK
	case errs.IsCode(err, errs.CodeNotFound):
		return statusNotFound
	case errs.IsCode(err, errs.CodeInvalidArgument):
		return statusInvalid
	default:
		return statusError
	}
}

// endSpan records err on span, if any.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
