// Package recommend talks to the recommendation engine and keeps the latest
// recommendations for each household in step with its roster.
package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/pantry/internal/apperr"
	"github.com/dukerupert/pantry/internal/metrics"
	"github.com/dukerupert/pantry/internal/model"
)

const tracerName = "github.com/dukerupert/pantry/internal/recommend"

// Config holds recommendation engine connection settings.
type Config struct {
	URL     string
	Timeout time.Duration
}

type recommendRequest struct {
	Ingredients []string `json:"ingredients"`
}

type recommendResponse struct {
	Recipes []model.Recipe `json:"recipes"`
}

// Client calls the recommendation engine over HTTP. Identical ingredient
// lists requested at the same time share one engine call.
type Client struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
	group      singleflight.Group
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		url:     cfg.URL,
		timeout: cfg.Timeout,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Recommend asks the engine for recipes matching ingredients. Failures are
// ErrRecommendationUnavailable with a readable message. If ctx ends first the
// caller gets ctx.Err() and stops waiting; the shared engine call still runs
// until the client timeout.
func (c *Client) Recommend(ctx context.Context, ingredients []string) ([]model.Recipe, error) {
	ch := c.group.DoChan(flightKey(ingredients), func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.call(callCtx, ingredients)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		recipes := res.Val.([]model.Recipe)
		return append([]model.Recipe(nil), recipes...), nil
	}
}

// flightKey identifies an ingredient list. Each name is length-prefixed so
// no name can forge the boundary between two others.
func flightKey(ingredients []string) string {
	var b strings.Builder
	for _, in := range ingredients {
		b.WriteString(strconv.Itoa(len(in)))
		b.WriteByte(':')
		b.WriteString(in)
	}
	return b.String()
}

func (c *Client) call(ctx context.Context, ingredients []string) (recipes []model.Recipe, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "recommend.call")
	span.SetAttributes(attribute.Int("recommend.ingredients", len(ingredients)))

	start := time.Now()
	metrics.RecommendInflight.Inc()
	defer func() {
		metrics.RecommendInflight.Dec()
		metrics.RecommendDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.RecommendCalls.WithLabelValues("error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			metrics.RecommendCalls.WithLabelValues("ok").Inc()
			span.SetAttributes(attribute.Int("recommend.recipes", len(recipes)))
		}
		span.End()
	}()

	body, err := json.Marshal(recommendRequest{Ingredients: ingredients})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, apperr.Wrap(apperr.CodeRecommendationUnavailable, "recommendation engine timed out", err)
		}
		return nil, apperr.Wrap(apperr.CodeRecommendationUnavailable, "recommendation engine unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.New(apperr.CodeRecommendationUnavailable,
			fmt.Sprintf("recommendation engine returned status %d", resp.StatusCode))
	}

	var rr recommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, apperr.Wrap(apperr.CodeRecommendationUnavailable, "recommendation engine sent an unreadable response", err)
	}
	if rr.Recipes == nil {
		rr.Recipes = []model.Recipe{}
	}
	return rr.Recipes, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
