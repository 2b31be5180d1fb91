package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mateusmacedo/togobus-bff/internal/booking/domain"
	"github.com/mateusmacedo/togobus-bff/pkg/application"
)

// HTTPPaymentGateway confirms payments against the payment service.
type HTTPPaymentGateway struct {
	baseURL string
	client  *http.Client
	logger  application.AppLogger
}

func NewHTTPPaymentGateway(baseURL string, timeout time.Duration, logger application.AppLogger) *HTTPPaymentGateway {
	return &HTTPPaymentGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (g *HTTPPaymentGateway) Confirm(ctx context.Context, request domain.PaymentRequest) (domain.PaymentConfirmation, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return domain.PaymentConfirmation{}, fmt.Errorf("encode payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/payments/confirm", bytes.NewReader(body))
	if err != nil {
		return domain.PaymentConfirmation{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Idempotency-Key", request.IdempotencyKey)

	resp, err := g.client.Do(req)
	if err != nil {
		application.LogError(ctx, g.logger, "payment service unreachable", err, map[string]interface{}{
			"booking_id": request.BookingID,
		})
		return domain.PaymentConfirmation{}, fmt.Errorf("confirm payment: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.PaymentConfirmation{}, fmt.Errorf("read payment response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return domain.PaymentConfirmation{}, fmt.Errorf("confirm payment: status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var confirmation domain.PaymentConfirmation
	if err := json.Unmarshal(payload, &confirmation); err != nil {
		return domain.PaymentConfirmation{}, fmt.Errorf("decode payment response: %w", err)
	}

	application.LogInfo(ctx, g.logger, "payment confirmed", map[string]interface{}{
		"booking_id":     request.BookingID,
		"transaction_id": confirmation.TransactionID,
		"status":         confirmation.Status,
	})
	return confirmation, nil
}

// SimulatedPaymentGateway settles every request locally. Repeating a request
// with the same idempotency key returns the first confirmation.
type SimulatedPaymentGateway struct {
	mu        sync.Mutex
	confirmed map[string]domain.PaymentConfirmation
	seq       uint64
	now       func() time.Time
	rand      *rand.Rand
	logger    application.AppLogger
}

type SimulatedOption func(*SimulatedPaymentGateway)

func WithSimulatedClock(now func() time.Time) SimulatedOption {
	return func(g *SimulatedPaymentGateway) {
		if now != nil {
			g.now = now
		}
	}
}

func NewSimulatedPaymentGateway(logger application.AppLogger, opts ...SimulatedOption) *SimulatedPaymentGateway {
	g := &SimulatedPaymentGateway{
		confirmed: make(map[string]domain.PaymentConfirmation),
		now:       time.Now,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *SimulatedPaymentGateway) Confirm(ctx context.Context, request domain.PaymentRequest) (domain.PaymentConfirmation, error) {
	if err := ctx.Err(); err != nil {
		return domain.PaymentConfirmation{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if confirmation, ok := g.confirmed[request.IdempotencyKey]; ok && request.IdempotencyKey != "" {
		application.LogDebug(ctx, g.logger, "replaying payment confirmation", map[string]interface{}{
			"booking_id": request.BookingID,
		})
		return confirmation, nil
	}

	// The sequence keeps ids unique within one millisecond.
	g.seq++
	confirmation := domain.PaymentConfirmation{
		PaymentID:     fmt.Sprintf("PMT-%06d", g.rand.Intn(1000000)),
		TransactionID: fmt.Sprintf("TXN-%d-%d", g.now().UnixMilli(), g.seq),
		Status:        domain.PaymentStatusCompleted,
	}
	if request.IdempotencyKey != "" {
		g.confirmed[request.IdempotencyKey] = confirmation
	}

	application.LogInfo(ctx, g.logger, "payment simulated", map[string]interface{}{
		"booking_id":     request.BookingID,
		"method":         request.Method,
		"transaction_id": confirmation.TransactionID,
	})
	return confirmation, nil
}
