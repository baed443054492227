package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PriceComputationTotal counts unit price compositions by product type.
	PriceComputationTotal *prometheus.CounterVec
	// CouponEvaluationTotal counts coupon evaluation outcomes.
	CouponEvaluationTotal *prometheus.CounterVec
	// GatewayResolutionTotal counts payment gateway resolutions by selected default.
	GatewayResolutionTotal *prometheus.CounterVec
	// PaymentIntentTotal counts payment intent creation outcomes.
	PaymentIntentTotal *prometheus.CounterVec
	// PaymentWebhookTotal counts inbound payment webhook processing outcomes.
	PaymentWebhookTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PriceComputationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_computation_total",
			Help:      "Count of unit price compositions by product type.",
		}, []string{"product_type"})
		CouponEvaluationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_evaluation_total",
			Help:      "Count of coupon evaluations by outcome.",
		}, []string{"result"})
		GatewayResolutionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_resolution_total",
			Help:      "Count of payment gateway resolutions by default gateway.",
		}, []string{"gateway"})
		PaymentIntentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_intent_total",
			Help:      "Count of payment intent creation outcomes.",
		}, []string{"provider", "result"})
		PaymentWebhookTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhook_total",
			Help:      "Count of processed payment webhooks by outcome.",
		}, []string{"provider", "result"})

		mustRegisterCollector(reg, PriceComputationTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PriceComputationTotal = v
			}
		})
		mustRegisterCollector(reg, CouponEvaluationTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponEvaluationTotal = v
			}
		})
		mustRegisterCollector(reg, GatewayResolutionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				GatewayResolutionTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentIntentTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentIntentTotal = v
			}
		})
		mustRegisterCollector(reg, PaymentWebhookTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentWebhookTotal = v
			}
		})
	})
}

// IncPriceComputation records a completed unit price composition.
func IncPriceComputation(productType string) {
	if PriceComputationTotal != nil {
		PriceComputationTotal.WithLabelValues(productType).Inc()
	}
}

// IncCouponEvaluation records a coupon evaluation outcome.
func IncCouponEvaluation(result string) {
	if CouponEvaluationTotal != nil {
		CouponEvaluationTotal.WithLabelValues(result).Inc()
	}
}

// IncGatewayResolution records a gateway resolution by its default gateway.
func IncGatewayResolution(gateway string) {
	if GatewayResolutionTotal != nil {
		GatewayResolutionTotal.WithLabelValues(gateway).Inc()
	}
}

// IncPaymentIntent records a payment intent creation outcome.
func IncPaymentIntent(provider, result string) {
	if PaymentIntentTotal != nil {
		PaymentIntentTotal.WithLabelValues(provider, result).Inc()
	}
}

// IncPaymentWebhook records a processed payment webhook outcome.
func IncPaymentWebhook(provider, result string) {
	if PaymentWebhookTotal != nil {
		PaymentWebhookTotal.WithLabelValues(provider, result).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
