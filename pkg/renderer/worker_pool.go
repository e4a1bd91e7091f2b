package renderer

import (
	"context"
	"math/rand"
	"runtime"
	"sync"

	"github.com/df07/go-multiquad-light/pkg/core"
	"github.com/df07/go-multiquad-light/pkg/scene"
)

// EstimateTask is one batch of samples at one receiver
type EstimateTask struct {
	TaskID   int // For deterministic ordering
	Receiver int
	Samples  int
	Seed     int64 // Seeds the task's own sampler so results do not depend on the worker
}

// EstimateResult contains the result of an estimate task
type EstimateResult struct {
	TaskID   int
	Receiver int
	WorkerID int
	Stats    ReceiverStats
	Failed   int // Light samples that returned no direction
	Occluded int
	Error    error
}

// WorkerPool manages parallel estimation
type WorkerPool struct {
	taskQueue   chan EstimateTask
	resultQueue chan EstimateResult
	workers     []*Worker
	numWorkers  int
	wg          sync.WaitGroup
}

// Worker handles individual estimate tasks. Its ID is the thread index it
// passes to the light, so each worker owns one sampling cache.
type Worker struct {
	ID          int
	estimator   *DirectLighting
	taskQueue   chan EstimateTask
	resultQueue chan EstimateResult
	tasks       int
	samples     int
}

// NewWorkerPool creates a worker pool with the specified number of workers.
// maxTasks sizes the queues so submitting never blocks.
func NewWorkerPool(s *scene.Scene, config EstimatorConfig, numWorkers, maxTasks int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	wp := &WorkerPool{
		taskQueue:   make(chan EstimateTask, maxTasks),
		resultQueue: make(chan EstimateResult, maxTasks),
		numWorkers:  numWorkers,
	}

	for i := 0; i < numWorkers; i++ {
		worker := &Worker{
			ID:          i,
			estimator:   NewDirectLighting(s, config, i),
			taskQueue:   wp.taskQueue,
			resultQueue: wp.resultQueue,
		}
		wp.workers = append(wp.workers, worker)
	}

	return wp
}

// Start begins all workers
func (wp *WorkerPool) Start(ctx context.Context) {
	for _, worker := range wp.workers {
		wp.wg.Add(1)
		go worker.run(ctx, &wp.wg)
	}
}

// Stop gracefully shuts down all workers
func (wp *WorkerPool) Stop() {
	close(wp.taskQueue) // No more tasks
	wp.wg.Wait()        // Wait for workers to finish
	close(wp.resultQueue)
}

// SubmitTask submits an estimate task to the worker pool
func (wp *WorkerPool) SubmitTask(task EstimateTask) {
	wp.taskQueue <- task
}

// GetResult retrieves a completed estimate result
func (wp *WorkerPool) GetResult() (EstimateResult, bool) {
	result, ok := <-wp.resultQueue
	return result, ok
}

// GetNumWorkers returns the number of workers in the pool
func (wp *WorkerPool) GetNumWorkers() int {
	return wp.numWorkers
}

// WorkerStats returns the task and sample counts of every worker.
// Only valid after Stop.
func (wp *WorkerPool) WorkerStats() []WorkerStats {
	stats := make([]WorkerStats, len(wp.workers))
	for i, w := range wp.workers {
		stats[i] = WorkerStats{ID: w.ID, Tasks: w.tasks, Samples: w.samples}
	}
	return stats
}

// run is the main worker loop
func (w *Worker) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range w.taskQueue {
		if err := ctx.Err(); err != nil {
			w.resultQueue <- EstimateResult{TaskID: task.TaskID, Receiver: task.Receiver, WorkerID: w.ID, Error: err}
			continue
		}

		sampler := core.NewRandomSampler(rand.New(rand.NewSource(task.Seed)))
		result := w.estimator.EstimateReceiver(task.Receiver, task.Samples, sampler)
		result.TaskID = task.TaskID
		result.WorkerID = w.ID

		w.tasks++
		w.samples += task.Samples
		w.resultQueue <- result
	}
}
