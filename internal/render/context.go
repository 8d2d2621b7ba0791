package render

import (
	"sync"
	"sync/atomic"
)

// ContextRunner выполняет задачу на потоке, владеющем графическим контекстом
type ContextRunner interface {
	RunOnContext(task func())
}

// ContextQueue передаёт задачи от рабочих горутин потоку контекста.
// Потребитель один: поток контекста вызывает Drain раз в кадр.
type ContextQueue struct {
	tasks     chan func()
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewContextQueue создаёт очередь с буфером на size задач
func NewContextQueue(size int) *ContextQueue {
	if size <= 0 {
		size = 1
	}
	return &ContextQueue{
		tasks: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// RunOnContext ставит задачу в очередь. Блокирует, только пока буфер полон;
// после Close задачи отбрасываются.
func (q *ContextQueue) RunOnContext(task func()) {
	if q.closed.Load() {
		return
	}
	select {
	case q.tasks <- task:
	case <-q.done:
	}
}

// Drain выполняет задачи, накопленные к моменту вызова, и возвращает их число.
// Не блокирует. Вызывается только на потоке контекста.
func (q *ContextQueue) Drain() int {
	n := len(q.tasks)
	ran := 0
	for ; ran < n; ran++ {
		select {
		case task := <-q.tasks:
			task()
		default:
			return ran
		}
	}
	return ran
}

// Pending возвращает число задач в очереди
func (q *ContextQueue) Pending() int {
	return len(q.tasks)
}

// Close прекращает приём задач и освобождает заблокированных отправителей
func (q *ContextQueue) Close() {
	q.closeOnce.Do(func() {
		q.closed.Store(true)
		close(q.done)
	})
}
