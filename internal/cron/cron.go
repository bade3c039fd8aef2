package cron

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v6"
	cronv3 "github.com/robfig/cron/v3"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/kotsworld/mailsync/config"
	"github.com/kotsworld/mailsync/interfaces"
	cron_config "github.com/kotsworld/mailsync/internal/cron/config"
	"github.com/kotsworld/mailsync/internal/logger"
	"github.com/kotsworld/mailsync/internal/tracing"
)

// CONSTANTS
const (
	// LeaseName is the Kubernetes lease shared by all replicas
	LeaseName = "mailsync-cron-leader"

	// LeaseDuration is how long a lease lasts before needing renewal
	LeaseDuration = 15 * time.Second
	// RenewDeadline is how long a leader has to renew its lease
	RenewDeadline = 10 * time.Second
	// RetryPeriod is how long to wait between leadership attempts
	RetryPeriod = 2 * time.Second
)

const (
	jobHeartbeat    = "heartbeat"
	jobDocumentSync = "document_sync"
	jobTicketSync   = "ticket_sync"
)

type CronManager struct {
	cfg         *config.Config
	log         logger.Logger
	cron        *cronv3.Cron
	k8s         kubernetes.Interface
	syncService interfaces.SyncService
	stopCh      chan struct{}
	jobIDs      map[string]cronv3.EntryID

	mu          sync.Mutex
	stopOnce    sync.Once
	cancelElect context.CancelFunc
}

func NewCronManager(cfg *config.Config, log logger.Logger, k8s kubernetes.Interface, syncService interfaces.SyncService) *CronManager {
	return &CronManager{
		cfg:         cfg,
		log:         log,
		k8s:         k8s,
		syncService: syncService,
		stopCh:      make(chan struct{}),
		jobIDs:      make(map[string]cronv3.EntryID),
	}
}

// Start runs the scheduler on the elected leader only.
// If k8s is nil, it will start in local mode without leader election
func (cm *CronManager) Start(podName, namespace string) error {
	if cm.k8s == nil || os.Getenv("LOCAL_DEV") == "true" {
		cm.log.Info("Starting cron manager in local mode")
		cm.StartCron()
		return nil
	}

	lock := &resourcelock.LeaseLock{
		LeaseMeta: metav1.ObjectMeta{
			Name:      LeaseName,
			Namespace: namespace,
		},
		Client: cm.k8s.CoordinationV1(),
		LockConfig: resourcelock.ResourceLockConfig{
			Identity: podName,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cm.mu.Lock()
	cm.cancelElect = cancel
	cm.mu.Unlock()

	errCh := make(chan error, 1)

	go func() {
		le, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
			Lock:            lock,
			ReleaseOnCancel: true,
			LeaseDuration:   LeaseDuration,
			RenewDeadline:   RenewDeadline,
			RetryPeriod:     RetryPeriod,
			Callbacks: leaderelection.LeaderCallbacks{
				OnStartedLeading: func(ctx context.Context) {
					cm.StartCron()
				},
				OnStoppedLeading: func() {
					cm.log.Info("Leader lost - stopping crons")
					cm.stopCron()
				},
				OnNewLeader: func(identity string) {
					cm.log.Infof("New leader elected: %s", identity)
				},
			},
		})
		if err != nil {
			errCh <- err
			return
		}

		le.Run(ctx)
	}()

	// Wait briefly to see if leader election fails immediately
	select {
	case err := <-errCh:
		cm.log.Warnf("Leader election failed, falling back to local mode: %v", err)
		cm.StartCron()
	case <-time.After(5 * time.Second):
	}

	return nil
}

// Stop waits for running jobs and gives up leadership.
func (cm *CronManager) Stop() {
	cm.stopOnce.Do(func() {
		cm.stopCron()

		cm.mu.Lock()
		if cm.cancelElect != nil {
			cm.cancelElect()
		}
		cm.mu.Unlock()

		close(cm.stopCh)
	})
}

func (cm *CronManager) stopCron() {
	cm.mu.Lock()
	c := cm.cron
	cm.cron = nil
	cm.mu.Unlock()

	if c != nil {
		cm.log.Info("Stopping cron manager")
		// Wait for jobs to finish
		<-c.Stop().Done()
	}
}

// registerJobs adds all cron jobs to the scheduler
func (cm *CronManager) registerJobs(c *cronv3.Cron, cronConfig cron_config.Config) error {
	if cronConfig.CronScheduleHeartbeat != "" {
		podName := cm.cfg.AppConfig.PodName
		if err := cm.addJob(c, jobHeartbeat, cronConfig.CronScheduleHeartbeat, func() {
			cm.log.Infof("Cron heartbeat from pod: %s", podName)
		}); err != nil {
			return err
		}
	}

	if cronConfig.CronScheduleDocumentSync != "" {
		if err := cm.addJob(c, jobDocumentSync, cronConfig.CronScheduleDocumentSync, cm.syncDocuments); err != nil {
			return err
		}
	}

	if cronConfig.CronScheduleTicketSync != "" {
		if err := cm.addJob(c, jobTicketSync, cronConfig.CronScheduleTicketSync, cm.syncTickets); err != nil {
			return err
		}
	}

	return nil
}

func (cm *CronManager) addJob(c *cronv3.Cron, name, schedule string, job func()) error {
	id, err := c.AddFunc(schedule, func() {
		defer tracing.RecoverAndLogToJaeger(cm.log)
		job()
	})
	if err != nil {
		cm.log.Errorf("Could not add %s cron job: %v", name, err)
		return err
	}
	cm.jobIDs[name] = id
	cm.log.Infof("Registered %s job with schedule: %s", name, schedule)
	return nil
}

// StartCron initializes and starts the cron scheduler
func (cm *CronManager) StartCron() {
	cm.log.Info("Starting cron manager")

	var cronConfig cron_config.Config
	if err := env.Parse(&cronConfig); err != nil {
		cm.log.Fatalf("Failed to parse cron config from environment: %v", err)
	}

	c := newScheduler()
	if err := cm.registerJobs(c, cronConfig); err != nil {
		cm.log.Fatalf("Failed to register cron jobs: %v", err)
	}
	c.Start()

	cm.mu.Lock()
	cm.cron = c
	cm.mu.Unlock()
}

// newScheduler uses a seconds field. A job still running when its next tick fires is skipped.
func newScheduler() *cronv3.Cron {
	return cronv3.New(
		cronv3.WithSeconds(),
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	)
}

func (cm *CronManager) syncDocuments() {
	span, ctx := tracing.StartTracerSpan(context.Background(), "CronManager.syncDocuments")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	result := cm.syncService.SyncDocuments(ctx)
	if result.Failed() {
		span.SetTag("error", true)
		cm.log.Errorf("Document sync failed: %s", result.Error)
		return
	}
	cm.log.Infof("Document sync completed - new: %d, skipped: %d, errors: %d", result.New, result.Skipped, result.Errors)
}

func (cm *CronManager) syncTickets() {
	span, ctx := tracing.StartTracerSpan(context.Background(), "CronManager.syncTickets")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	result := cm.syncService.SyncTickets(ctx)
	if result.Failed() {
		span.SetTag("error", true)
		cm.log.Errorf("Ticket sync failed: %s", result.Error)
		return
	}
	cm.log.Infof("Ticket sync completed - new: %d, closed: %d, already closed: %d", result.New, result.Closed, result.AlreadyClosed)
}
