// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラやサービス層から利用する。
type MetricsCollector interface {
	RecordSignup()
	RecordTokenIssued()
	RecordAuthFailure()
	RecordMailSent()
	RecordMailFailure()
	RecordReviewCreated()
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	signups        prometheus.Counter
	tokensIssued   prometheus.Counter
	authFailures   prometheus.Counter
	mailSent       prometheus.Counter
	mailFailures   prometheus.Counter
	reviewsCreated prometheus.Counter
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rateman_signup_total",
			Help: "サインアップ受理の合計数",
		}),
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rateman_tokens_issued_total",
			Help: "発行されたアクセストークンの合計数",
		}),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rateman_auth_fail_total",
			Help: "確認コード検証失敗の合計数",
		}),
		mailSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rateman_mail_sent_total",
			Help: "送信された確認コードメールの合計数",
		}),
		mailFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rateman_mail_fail_total",
			Help: "確認コードメール送信失敗の合計数",
		}),
		reviewsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rateman_reviews_created_total",
			Help: "投稿されたレビューの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rateman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rateman_request_latency_seconds",
			Help:    "リクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.signups,
		c.tokensIssued,
		c.authFailures,
		c.mailSent,
		c.mailFailures,
		c.reviewsCreated,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordSignup はサインアップ受理を記録する。
func (c *Collector) RecordSignup() {
	c.signups.Inc()
}

// RecordTokenIssued はアクセストークン発行を記録する。
func (c *Collector) RecordTokenIssued() {
	c.tokensIssued.Inc()
}

// RecordAuthFailure は確認コード検証失敗を記録する。
func (c *Collector) RecordAuthFailure() {
	c.authFailures.Inc()
}

// RecordMailSent は確認コードメール送信成功を記録する。
func (c *Collector) RecordMailSent() {
	c.mailSent.Inc()
}

// RecordMailFailure は確認コードメール送信失敗を記録する。
func (c *Collector) RecordMailFailure() {
	c.mailFailures.Inc()
}

// RecordReviewCreated はレビュー投稿を記録する。
func (c *Collector) RecordReviewCreated() {
	c.reviewsCreated.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
