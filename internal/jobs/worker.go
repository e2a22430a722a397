package jobs

import (
	"log/slog"

	"github.com/hibiken/asynq"
)

// Worker consumes queued tasks. Concurrency is fixed at 1: booking runs
// drive a single browser session against a single club account, so
// overlapping runs would race for the same slots.
type Worker interface {
	RegisterHandler(taskType string, handler asynq.Handler)
	Run() error
	Shutdown()
}

type worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *slog.Logger
}

var _ Worker = (*worker)(nil)

// NewWorker builds a Worker over an asynq.Server consuming the given queues.
func NewWorker(redisOpt asynq.RedisConnOpt, queues map[string]int, log *slog.Logger) Worker {
	if log == nil {
		log = slog.Default()
	}

	return &worker{
		server: asynq.NewServer(redisOpt, asynq.Config{
			Queues:      queues,
			Concurrency: 1,
		}),
		mux: asynq.NewServeMux(),
		log: log,
	}
}

func (w *worker) RegisterHandler(taskType string, handler asynq.Handler) {
	w.mux.Handle(taskType, handler)
}

// Run starts consuming tasks and blocks until Shutdown.
func (w *worker) Run() error {
	w.log.Info("task worker starting")
	return w.server.Run(w.mux)
}

func (w *worker) Shutdown() {
	w.log.Info("task worker shutting down")
	w.server.Shutdown()
}
