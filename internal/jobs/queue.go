package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/hibiken/asynq"
)

const TaskSendEmail = "email:send"

type Queue struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	logger hclog.Logger
}

func NewQueue(redisAddr string, logger hclog.Logger) *Queue {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("queue")
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	client := asynq.NewClient(redisOpt)
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			Logger:   hclogAdapter{l: logger, exit: os.Exit},
			LogLevel: asynq.WarnLevel,
		},
	)
	mux := asynq.NewServeMux()
	return &Queue{client: client, server: server, mux: mux, logger: logger}
}

func (q *Queue) RegisterHandler(taskType string, handler asynq.Handler) {
	q.mux.Handle(taskType, handler)
}

// Enqueue submits a task. Tasks are never retried.
func (q *Queue) Enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	opts = append([]asynq.Option{asynq.MaxRetry(0)}, opts...)
	task := asynq.NewTask(taskType, data, opts...)
	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	return info.ID, nil
}

func (q *Queue) Start() error {
	q.logger.Info("job queue worker starting")
	return q.server.Start(q.mux)
}

func (q *Queue) Stop() {
	q.server.Shutdown()
	q.client.Close()
}

// hclogAdapter lets asynq log through the service logger.
type hclogAdapter struct {
	l    hclog.Logger
	exit func(int)
}

func (a hclogAdapter) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }
func (a hclogAdapter) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...)) }
func (a hclogAdapter) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...)) }
func (a hclogAdapter) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }

// Fatal logs and terminates the process, as asynq expects.
func (a hclogAdapter) Fatal(args ...interface{}) {
	a.l.Error(fmt.Sprint(args...))
	a.exit(1)
}
