// Package healthcheck предоставляет функции проверки готовности сервиса.
// Используется для Kubernetes readiness probes (/readyz).
package healthcheck

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"gorm.io/gorm"
)

// CheckMySQL проверяет доступность MySQL через GORM.
func CheckMySQL(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("mysql: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("mysql ping: %w", err)
	}
	return nil
}

// CheckRedis проверяет доступность Redis.
func CheckRedis(ctx context.Context, rdb *redis.Client) error {
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// CheckKafka проверяет доступность хотя бы одного брокера Kafka.
func CheckKafka(ctx context.Context, brokers []string) error {
	var lastErr error
	for _, broker := range brokers {
		conn, err := kafkago.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_ = conn.Close()
		return nil
	}
	return fmt.Errorf("kafka: брокеры недоступны: %w", lastErr)
}

// Composite объединяет несколько проверок в одну.
// Возвращает первую ошибку или nil если все проверки пройдены.
func Composite(checks ...func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		for _, check := range checks {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
