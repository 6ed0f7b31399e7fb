package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
)

// StatusNotifier receives periodic progress reports
type StatusNotifier interface {
	SendStatusMessage(ctx context.Context, distributor solana.PublicKey, claimed int, uptime time.Duration) error
}

// StatusMonitor periodically reports claim progress of every distributor
type StatusMonitor struct {
	service   *DistributionService
	notifier  StatusNotifier
	interval  time.Duration
	started   time.Time
	lastSeen  map[solana.PublicKey]uint64
	stopCh    chan struct{}
	stopOnce  sync.Once
	waitGroup sync.WaitGroup
	logger    *log.Logger
}

// NewStatusMonitor creates a new monitor; notifier may be nil to only log
func NewStatusMonitor(svc *DistributionService, notifier StatusNotifier, interval time.Duration, logger *log.Logger) *StatusMonitor {
	return &StatusMonitor{
		service:  svc,
		notifier: notifier,
		interval: interval,
		lastSeen: make(map[solana.PublicKey]uint64),
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

// Start begins the monitoring process. A non-positive interval disables it.
func (m *StatusMonitor) Start(ctx context.Context) {
	if m.interval <= 0 {
		m.logger.Printf("WARNING: Status interval %s is not positive, status monitor disabled", m.interval)
		return
	}
	m.logger.Println("Starting status monitor...")
	m.started = time.Now()
	m.waitGroup.Add(1)

	go func() {
		defer m.waitGroup.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.report(ctx)
			case <-m.stopCh:
				m.logger.Println("Stopping status monitor...")
				return
			case <-ctx.Done():
				m.logger.Println("Context cancelled, stopping status monitor...")
				return
			}
		}
	}()
}

// Stop gracefully stops the monitoring process. It is safe to call more
// than once.
func (m *StatusMonitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	m.waitGroup.Wait()
}

// report logs every distributor and notifies about those that progressed
// since the previous report
func (m *StatusMonitor) report(ctx context.Context) {
	addresses, err := m.service.List()
	if err != nil {
		m.logger.Printf("Error listing distributors: %v", err)
		return
	}

	for _, addr := range addresses {
		status, err := m.service.Status(addr)
		if err != nil {
			m.logger.Printf("Error reading distributor %s: %v", addr, err)
			continue
		}
		m.logger.Printf("Distributor %s: %d claimed", addr, status.Claimed)

		if status.Claimed == m.lastSeen[addr] {
			continue
		}
		m.lastSeen[addr] = status.Claimed

		if m.notifier == nil {
			continue
		}
		if err := m.notifier.SendStatusMessage(ctx, addr, int(status.Claimed), time.Since(m.started)); err != nil {
			m.logger.Printf("WARNING: Failed to send status message: %v", err)
		}
	}
}
