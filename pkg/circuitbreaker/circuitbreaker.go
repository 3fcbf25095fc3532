// Package circuitbreaker предоставляет Circuit Breaker для защиты от каскадных сбоев.
// Используется в HTTP клиенте платёжного шлюза для быстрого отказа при его недоступности.
//
// Состояния Circuit Breaker:
//   - Closed: нормальная работа, запросы проходят
//   - Open: шлюз недоступен, запросы отклоняются мгновенно (без ожидания timeout)
//   - Half-Open: пробный период, пропускаем часть запросов для проверки восстановления
//
// Использование:
//
//	cb := circuitbreaker.New("razorpay")
//	result, err := cb.Do(func() (any, error) { return client.CreateIntent(...) })
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"example.com/craftshop/pkg/logger"
)

// ErrBreakerOpen — запрос отклонён, breaker в состоянии Open или Half-Open переполнен.
var ErrBreakerOpen = errors.New("сервис временно недоступен (circuit breaker open)")

// Settings — настройки Circuit Breaker.
type Settings struct {
	MaxRequests  uint32        // Макс. запросов в Half-Open состоянии (по умолчанию 1)
	Interval     time.Duration // Интервал сброса счётчика в Closed (по умолчанию 60s)
	Timeout      time.Duration // Время в Open до перехода в Half-Open (по умолчанию 30s)
	FailureRatio float64       // Доля ошибок для перехода в Open (по умолчанию 0.5)
	MinRequests  uint32        // Мин. запросов для расчёта ratio (по умолчанию 5)
}

// DefaultSettings возвращает настройки по умолчанию.
// Оптимизированы для внешнего платёжного шлюза с таймаутом 15s.
func DefaultSettings() Settings {
	return Settings{
		MaxRequests:  1,                // В Half-Open пропускаем 1 запрос
		Interval:     60 * time.Second, // Сбрасываем счётчик каждые 60 секунд
		Timeout:      30 * time.Second, // Через 30 секунд пробуем восстановить связь
		FailureRatio: 0.5,              // Открываем при 50% ошибок
		MinRequests:  5,                // Минимум 5 запросов для принятия решения
	}
}

// permanentError — обёртка для бизнес-ошибок, которые не должны открывать breaker.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent помечает ошибку как бизнес-ошибку.
// Такие ошибки возвращаются вызывающему, но не учитываются в статистике breaker
// (например, отказ шлюза по валидации суммы — это не сбой инфраструктуры).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Breaker — обёртка над gobreaker с логированием.
type Breaker struct {
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// New создаёт новый Circuit Breaker с настройками по умолчанию.
func New(name string) *Breaker {
	return NewWithSettings(name, DefaultSettings())
}

// NewWithSettings создаёт Circuit Breaker с пользовательскими настройками.
func NewWithSettings(name string, s Settings) *Breaker {
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,

		// ReadyToTrip определяет когда открыть breaker.
		// Открываем если доля ошибок >= FailureRatio и было >= MinRequests запросов.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= s.FailureRatio
		},

		// OnStateChange логирует смену состояния.
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log := logger.With().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Logger()

			switch to {
			case gobreaker.StateOpen:
				log.Warn().Msg("Circuit Breaker ОТКРЫТ — шлюз недоступен")
			case gobreaker.StateHalfOpen:
				log.Info().Msg("Circuit Breaker ПОЛУОТКРЫТ — пробуем восстановить")
			case gobreaker.StateClosed:
				log.Info().Msg("Circuit Breaker ЗАКРЫТ — шлюз восстановлен")
			}
		},
	})

	return &Breaker{cb: cb, name: name}
}

// State возвращает текущее состояние breaker.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Name возвращает имя breaker.
func (b *Breaker) Name() string {
	return b.name
}

// Do выполняет fn через Circuit Breaker.
// Ошибки, помеченные Permanent, возвращаются вызывающему, но не учитываются
// в статистике breaker. Инфраструктурные ошибки (сеть, таймаут, 5xx)
// учитываются и могут открыть breaker.
func (b *Breaker) Do(fn func() (any, error)) (any, error) {
	var businessErr error

	result, cbErr := b.cb.Execute(func() (any, error) {
		result, err := fn()
		if err != nil {
			var perm *permanentError
			if errors.As(err, &perm) {
				// Бизнес-ошибка: для breaker это успех.
				businessErr = perm.err
				return result, nil
			}
			return result, err
		}
		return result, nil
	})

	// Circuit Breaker открыт — мгновенный отказ.
	if errors.Is(cbErr, gobreaker.ErrOpenState) || errors.Is(cbErr, gobreaker.ErrTooManyRequests) {
		return nil, ErrBreakerOpen
	}
	if cbErr != nil {
		return result, cbErr
	}
	if businessErr != nil {
		return result, businessErr
	}
	return result, nil
}
