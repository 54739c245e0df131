package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/tmkit/taskmaster/internal/audit"
	"github.com/tmkit/taskmaster/internal/telemetry"
)

const scopeName = "github.com/tmkit/taskmaster/ai"

// Logger is the subset of *log.Logger (charmbracelet/log) the client uses.
type Logger interface {
	Debug(msg interface{}, keyvals ...interface{})
	Warn(msg interface{}, keyvals ...interface{})
}

// Options configures NewAnthropic.
type Options struct {
	APIKey     string
	Model      string
	MaxTokens  int
	MaxRetries int
	Timeout    time.Duration
	// Audit, when set, receives one entry per call.
	Audit  *audit.Log
	Logger Logger
	// BaseURL overrides the API endpoint (tests).
	BaseURL string
	// InitialBackoff is the first retry delay; defaults to one second.
	InitialBackoff time.Duration
}

// Anthropic is a Generator backed by the Anthropic Messages API.
type Anthropic struct {
	client         anthropic.Client
	model          anthropic.Model
	maxTokens      int
	maxRetries     int
	timeout        time.Duration
	initialBackoff time.Duration
	audit          *audit.Log
	log            Logger
}

// NewAnthropic builds a client. The SDK's own retries are disabled so that
// retry policy, metrics and audit see every attempt.
func NewAnthropic(opts Options) (*Anthropic, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY or ai.api-key", ErrAPIKeyRequired)
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}

	aiMetricsOnce.Do(initAIMetrics)

	return &Anthropic{
		client:         anthropic.NewClient(reqOpts...),
		model:          anthropic.Model(opts.Model),
		maxTokens:      opts.MaxTokens,
		maxRetries:     opts.MaxRetries,
		timeout:        opts.Timeout,
		initialBackoff: opts.InitialBackoff,
		audit:          opts.Audit,
		log:            opts.Logger,
	}, nil
}

// Generate sends req and returns the first text block of the reply.
func (a *Anthropic) Generate(ctx context.Context, req Request) (Response, error) {
	resp, err := a.callWithRetry(ctx, req)
	if a.audit != nil {
		e := &audit.Entry{
			Kind:     "llm_call",
			Actor:    string(req.Kind),
			TaskID:   req.TaskID,
			Model:    string(a.model),
			Prompt:   req.Prompt,
			Response: resp.Text,
		}
		if err != nil {
			e.Error = err.Error()
		}
		if _, auditErr := a.audit.Append(e); auditErr != nil {
			a.log.Warn("failed to write audit entry", "err", auditErr)
		}
	}
	return resp, err
}

// aiMetrics holds lazily-initialized OTel instruments for Anthropic API calls.
var aiMetrics struct {
	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter
	duration     metric.Float64Histogram
}

var aiMetricsOnce sync.Once

func initAIMetrics() {
	m := telemetry.Meter(scopeName)
	aiMetrics.inputTokens, _ = m.Int64Counter("tm.ai.input_tokens",
		metric.WithDescription("Anthropic API input tokens consumed"),
		metric.WithUnit("{token}"),
	)
	aiMetrics.outputTokens, _ = m.Int64Counter("tm.ai.output_tokens",
		metric.WithDescription("Anthropic API output tokens generated"),
		metric.WithUnit("{token}"),
	)
	aiMetrics.duration, _ = m.Float64Histogram("tm.ai.request.duration",
		metric.WithDescription("Anthropic API request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
}

func (a *Anthropic) newBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = a.initialBackoff
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	return backoff.WithMaxRetries(bo, uint64(a.maxRetries))
}

func (a *Anthropic) callWithRetry(ctx context.Context, req Request) (Response, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	ctx, span := telemetry.Tracer(scopeName).Start(ctx, "anthropic.messages.new")
	defer span.End()
	modelAttr := attribute.String("tm.ai.model", string(a.model))
	span.SetAttributes(modelAttr, attribute.String("tm.ai.operation", string(req.Kind)))

	maxTokens := a.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	var out Response
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		t0 := time.Now()
		message, err := a.client.Messages.New(ctx, params)
		ms := float64(time.Since(t0).Milliseconds())
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			if !isRetryable(err) {
				return backoff.Permanent(fmt.Errorf("non-retryable error: %w", err))
			}
			a.log.Warn("AI request failed, retrying", "attempt", attempts, "err", err)
			return err
		}

		if aiMetrics.inputTokens != nil {
			aiMetrics.inputTokens.Add(ctx, message.Usage.InputTokens, metric.WithAttributes(modelAttr))
			aiMetrics.outputTokens.Add(ctx, message.Usage.OutputTokens, metric.WithAttributes(modelAttr))
			aiMetrics.duration.Record(ctx, ms, metric.WithAttributes(modelAttr))
		}
		out = Response{
			Model:        string(message.Model),
			InputTokens:  message.Usage.InputTokens,
			OutputTokens: message.Usage.OutputTokens,
		}
		for _, block := range message.Content {
			if block.Type == "text" {
				out.Text = block.Text
				return nil
			}
		}
		return backoff.Permanent(fmt.Errorf("unexpected response format: no text block"))
	}, backoff.WithContext(a.newBackoff(), ctx))

	span.SetAttributes(attribute.Int("tm.ai.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if isRetryable(err) {
			return Response{}, fmt.Errorf("failed after %d attempts: %w", attempts, err)
		}
		return Response{}, err
	}
	span.SetAttributes(
		attribute.Int64("tm.ai.input_tokens", out.InputTokens),
		attribute.Int64("tm.ai.output_tokens", out.OutputTokens),
	)
	a.log.Debug("AI request complete", "kind", req.Kind, "attempts", attempts, "output_tokens", out.OutputTokens)
	return out, nil
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}

type nopLogger struct{}

func (nopLogger) Debug(interface{}, ...interface{}) {}
func (nopLogger) Warn(interface{}, ...interface{})  {}
