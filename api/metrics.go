package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	agendaSpanName    = "agenda.request"
	agendaEventName   = "agenda.request.metrics"
	agendaEventDomain = "agenda"
)

type agendaRequestMetrics struct {
	logger           *log.Logger
	span             trace.Span
	start            time.Time
	authDuration     time.Duration
	buildDuration    time.Duration
	encodeDuration   time.Duration
	searchProvided   bool
	sectionsReturned int
	errorStage       string
}

// newAgendaRequestMetrics starts the request span and returns the span
// context the rest of the request should run under.
func newAgendaRequestMetrics(ctx context.Context, logger *log.Logger) (*agendaRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer("agenda-api/api").Start(ctx, agendaSpanName)
	return &agendaRequestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
	}, spanCtx
}

func (m *agendaRequestMetrics) ObserveAuth(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *agendaRequestMetrics) ObserveBuild(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.buildDuration = duration
}

func (m *agendaRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *agendaRequestMetrics) SetSearchProvided(provided bool) {
	m.searchProvided = provided
}

func (m *agendaRequestMetrics) SetSectionsReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.sectionsReturned = count
}

func (m *agendaRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log emits the observability event for the finished request as a logrus
// entry and as a span event, then ends the span.
func (m *agendaRequestMetrics) Log(status int, err error) {
	if m == nil || m.logger == nil {
		return
	}

	severityText, severityNumber := severityForStatus(status, err)

	attrs := []attribute.KeyValue{
		attribute.String("http.route", "/api/agenda"),
		attribute.Int("http.status_code", status),
		attribute.Bool("agenda.search_provided", m.searchProvided),
		attribute.Int("agenda.sections_returned", m.sectionsReturned),
		attribute.Float64("agenda.total_ms", durationToMillis(time.Since(m.start))),
	}
	if m.authDuration > 0 {
		attrs = append(attrs, attribute.Float64("agenda.auth_ms", durationToMillis(m.authDuration)))
	}
	if m.buildDuration > 0 {
		attrs = append(attrs, attribute.Float64("agenda.build_ms", durationToMillis(m.buildDuration)))
	}
	if m.encodeDuration > 0 {
		attrs = append(attrs, attribute.Float64("agenda.encode_ms", durationToMillis(m.encodeDuration)))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("agenda.error_stage", m.errorStage))
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
	}

	fields := log.Fields{
		"event.name":      agendaEventName,
		"event.domain":    agendaEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      attributeMap(attrs),
	}

	if m.span != nil {
		sc := m.span.SpanContext()
		if sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
		if sc.HasSpanID() {
			fields["span_id"] = sc.SpanID().String()
		}

		eventAttrs := append([]attribute.KeyValue{
			attribute.String("event.name", agendaEventName),
			attribute.String("event.domain", agendaEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
		}, attrs...)

		m.span.SetAttributes(attrs...)
		m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))
		if err != nil || status >= http.StatusInternalServerError {
			desc := http.StatusText(status)
			if err != nil {
				desc = err.Error()
			}
			m.span.SetStatus(codes.Error, desc)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	m.logger.WithFields(fields).Info("observability.event")
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	}
	return "INFO", 9
}

func attributeMap(attrs []attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
