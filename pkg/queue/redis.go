package queue

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"go-bwfilter/pkg/stats"
)

// ReportStream is the redis stream finished run reports are appended to.
const ReportStream = "bwfilter:reports"

// RedisReporter publishes run reports to a redis stream so several runs on
// different machines can be compared from one place.
type RedisReporter struct {
	client *redis.Client
	stream string
}

// NewRedisReporter connects to addr and verifies the connection.
func NewRedisReporter(ctx context.Context, addr string) (*RedisReporter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "redis ping failed")
	}

	return &RedisReporter{
		client: client,
		stream: ReportStream,
	}, nil
}

func (r *RedisReporter) Close() error {
	return r.client.Close()
}

// PublishReport appends report to the stream and returns the entry id.
func (r *RedisReporter) PublishReport(ctx context.Context, report stats.Report) (string, error) {
	b, err := sonic.Marshal(report)
	if err != nil {
		return "", errors.Wrap(err, "encode report")
	}

	result := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{
			"run_id":   report.RunID,
			"skeleton": report.Skeleton,
			"data":     b,
		},
	})
	if err := result.Err(); err != nil {
		return "", errors.Wrapf(err, "xadd %s", r.stream)
	}
	return result.Val(), nil
}

// Recent returns the raw JSON of the newest n reports, newest first.
func (r *RedisReporter) Recent(ctx context.Context, n int64) ([][]byte, error) {
	msgs, err := r.client.XRevRangeN(ctx, r.stream, "+", "-", n).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "xrevrange %s", r.stream)
	}

	out := make([][]byte, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, bytesFromInterface(msg.Values["data"]))
	}
	return out, nil
}

func bytesFromInterface(v interface{}) []byte {
	switch t := v.(type) {
	case string:
		return []byte(t)
	case []byte:
		return t
	default:
		return nil
	}
}
