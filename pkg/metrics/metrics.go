package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "campus"

// Metrics Prometheus 指标集合
// HTTP 请求指标由中间件写入；认证结果指标由 AuthService 写入
type Metrics struct {
	Requests      *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	InFlight      prometheus.Gauge
	LoginTotal    *prometheus.CounterVec
	RegisterTotal *prometheus.CounterVec
}

// New 创建并注册全部指标；reg 为 nil 时使用默认注册器
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP 请求总数（按方法、路由、状态码划分）",
		}, []string{"method", "route", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP 请求耗时（秒）",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "正在处理的 HTTP 请求数",
		}),
		LoginTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_total",
			Help:      "登录结果计数",
		}, []string{"result"}),
		RegisterTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "register_total",
			Help:      "注册结果计数",
		}, []string{"result"}),
	}

	var err error
	if m.Requests, err = register(reg, m.Requests); err != nil {
		return nil, err
	}
	if m.Duration, err = register(reg, m.Duration); err != nil {
		return nil, err
	}
	if m.InFlight, err = register(reg, m.InFlight); err != nil {
		return nil, err
	}
	if m.LoginTotal, err = register(reg, m.LoginTotal); err != nil {
		return nil, err
	}
	if m.RegisterTotal, err = register(reg, m.RegisterTotal); err != nil {
		return nil, err
	}

	return m, nil
}

// register 注册采集器；已注册时复用既有实例
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
			return c, fmt.Errorf("已注册的采集器类型不符: %T", already.ExistingCollector)
		}
		return c, fmt.Errorf("注册指标失败: %w", err)
	}
	return c, nil
}

// ObserveLogin 记录一次登录结果；m 为 nil 时忽略
func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.LoginTotal.WithLabelValues(result).Inc()
}

// ObserveRegister 记录一次注册结果；m 为 nil 时忽略
func (m *Metrics) ObserveRegister(result string) {
	if m == nil {
		return
	}
	m.RegisterTotal.WithLabelValues(result).Inc()
}
