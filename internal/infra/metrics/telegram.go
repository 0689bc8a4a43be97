package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookUpdatesTotal,
		webhookAuthFailuresTotal,
		webhookDuplicatesTotal,
		telegramAPIErrorsTotal,
		telegramRateLimitTriggeredTotal,
		jokeRequestsTotal,
	)
}

var (
	webhookUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_webhook_updates_total",
			Help: "Authenticated webhook updates by decoded kind.",
		},
		[]string{"kind"},
	)

	webhookAuthFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_webhook_auth_failures_total",
			Help: "Webhook requests rejected for a missing or wrong secret.",
		},
	)

	webhookDuplicatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_webhook_duplicates_total",
			Help: "Webhook updates dropped because the update id was already seen.",
		},
	)

	telegramAPIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_api_errors_total",
			Help: "Bot API call failures by method and taxonomy kind.",
		},
		[]string{"method", "kind"},
	)

	telegramRateLimitTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_rate_limit_triggered_total",
			Help: "Total number of times users have been rate-limited.",
		},
	)

	jokeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "joke_requests_total",
			Help: "Joke replies by result (ok/fallback).",
		},
		[]string{"result"},
	)
)

func IncWebhookUpdate(kind string) {
	webhookUpdatesTotal.WithLabelValues(norm(kind)).Inc()
}

func IncWebhookAuthFailure() {
	webhookAuthFailuresTotal.Inc()
}

func IncWebhookDuplicate() {
	webhookDuplicatesTotal.Inc()
}

func IncTelegramAPIError(method, kind string) {
	telegramAPIErrorsTotal.WithLabelValues(method, norm(kind)).Inc()
}

func IncRateLimitTriggered() {
	telegramRateLimitTriggeredTotal.Inc()
}

func IncJoke(result string) {
	jokeRequestsTotal.WithLabelValues(norm(result)).Inc()
}
