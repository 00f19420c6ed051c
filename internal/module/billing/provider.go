package billing

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

// Provider is the outbound payment-provider surface the billing module needs.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, userID, priceID string) (*stripe.CheckoutSession, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
}

// SimulatedProviderConfig tunes the simulated provider's failure behavior.
type SimulatedProviderConfig struct {
	// Latency is added to every call to mimic a network round trip.
	Latency time.Duration

	// FailureRate in [0,1) makes calls fail randomly so the breaker has
	// something to trip on. Zero disables injected failures.
	FailureRate float64
}

// SimulatedProvider stands in for the real payment provider. Calls go
// through a circuit breaker so repeated simulated outages shed load the same
// way a real integration would.
type SimulatedProvider struct {
	cfg    SimulatedProviderConfig
	logger *zap.Logger

	checkoutBreaker *gobreaker.CircuitBreaker[*stripe.CheckoutSession]
	cancelBreaker   *gobreaker.CircuitBreaker[*stripe.Subscription]
}

// NewSimulatedProvider creates a simulated payment provider.
func NewSimulatedProvider(cfg SimulatedProviderConfig, logger *zap.Logger) *SimulatedProvider {
	onStateChange := func(name string, from, to gobreaker.State) {
		logger.Warn("payment provider breaker state changed",
			zap.String("breaker", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	settings := func(name string) gobreaker.Settings {
		return gobreaker.Settings{
			Name:        name,
			MaxRequests: 3,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: onStateChange,
		}
	}

	return &SimulatedProvider{
		cfg:             cfg,
		logger:          logger,
		checkoutBreaker: gobreaker.NewCircuitBreaker[*stripe.CheckoutSession](settings("provider-checkout")),
		cancelBreaker:   gobreaker.NewCircuitBreaker[*stripe.Subscription](settings("provider-cancel")),
	}
}

// Compile-time interface check.
var _ Provider = (*SimulatedProvider)(nil)

// CreateCheckoutSession returns a provider-shaped checkout session carrying
// the user reference the webhook pipeline expects.
func (p *SimulatedProvider) CreateCheckoutSession(ctx context.Context, userID, priceID string) (*stripe.CheckoutSession, error) {
	return p.checkoutBreaker.Execute(func() (*stripe.CheckoutSession, error) {
		if err := p.simulateCall(ctx); err != nil {
			return nil, err
		}

		sessionID := "cs_sim_" + uuid.NewString()
		return &stripe.CheckoutSession{
			ID:                sessionID,
			Mode:              stripe.CheckoutSessionModeSubscription,
			Status:            stripe.CheckoutSessionStatusComplete,
			ClientReferenceID: userID,
			URL:               "https://checkout.lumastudio.test/c/" + sessionID,
			Metadata: map[string]string{
				"userId":  userID,
				"priceId": priceID,
			},
			Subscription: &stripe.Subscription{
				ID: "sub_sim_" + uuid.NewString(),
			},
		}, nil
	})
}

// CancelSubscription marks the provider-side subscription canceled at period
// end and returns the updated provider view.
func (p *SimulatedProvider) CancelSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	return p.cancelBreaker.Execute(func() (*stripe.Subscription, error) {
		if err := p.simulateCall(ctx); err != nil {
			return nil, err
		}

		return &stripe.Subscription{
			ID:                subscriptionID,
			Status:            stripe.SubscriptionStatusCanceled,
			CancelAtPeriodEnd: true,
			CurrentPeriodEnd:  time.Now().Unix(),
		}, nil
	})
}

func (p *SimulatedProvider) simulateCall(ctx context.Context) error {
	if p.cfg.Latency > 0 {
		select {
		case <-time.After(p.cfg.Latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.cfg.FailureRate > 0 && rand.Float64() < p.cfg.FailureRate {
		return fmt.Errorf("simulated provider outage")
	}
	return nil
}
