package jobqueue

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/adamrozichner-star/dpo-saas/internal/pkg/billing"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/env"
	"github.com/adamrozichner-star/dpo-saas/internal/pkg/reconcile"
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue         *Queue
	billingTicker *time.Ticker
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := 3
		if v, err := strconv.Atoi(env.GetEnv("JOBQUEUE_WORKERS", "3")); err == nil && v > 0 {
			workerCount = v
		}

		globalManager = &Manager{
			queue:  NewQueue(workerCount),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Configure wires the job processors against the application DB. Must run
// before Start. The reconciliation service emails through the queue itself.
func (m *Manager) Configure(db *gorm.DB) {
	notifier := NewQueueNotifier(m.queue)
	reconciler := reconcile.NewServiceFromDB(db, notifier)
	sweeper := billing.NewSweeper(reconciler)

	m.queue.SetProcessors(smtpMailer{}, newDocumentRenderer(db), sweepRunner{sweeper: sweeper})
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	// Start the job queue
	m.queue.Start()

	// Daily recurring billing sweep; interval override is for staging.
	sweepInterval := 24 * time.Hour
	if v, err := strconv.Atoi(env.GetEnv("BILLING_SWEEP_INTERVAL_MINUTES", "0")); err == nil && v > 0 {
		sweepInterval = time.Duration(v) * time.Minute
	}
	m.billingTicker = time.NewTicker(sweepInterval)
	m.wg.Add(1)
	go m.billingWorker(sweepInterval)

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.billingTicker != nil {
		m.billingTicker.Stop()
	}

	// Signal workers to stop
	close(m.stopCh)
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	// Stop the job queue
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// billingWorker enqueues the recurring billing sweep on a fixed interval.
func (m *Manager) billingWorker(interval time.Duration) {
	defer m.wg.Done()
	log.Infof("[JobQueue Manager] Started billing worker (interval: %s)", interval)

	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Billing worker stopping")
			return
		case <-m.billingTicker.C:
			if _, err := m.queue.EnqueueJob(JobTypeBillingSweep, BillingSweepJobPayload{TriggeredBy: "ticker"}.ToMap()); err != nil {
				log.Errorf("[JobQueue Manager] Error enqueuing billing sweep: %v", err)
			}
		}
	}
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
