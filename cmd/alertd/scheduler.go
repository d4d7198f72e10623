package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dashforge-backend/internal/alerting"
)

// scheduler drives periodic evaluation: one ticker per rule feeding a
// bounded worker pool, so a slow backend stalls at most one worker and never
// the tickers of unrelated rules.
type scheduler struct {
	mu      sync.Mutex
	jobs    map[string]*job
	queue   chan jobRun
	workers int
	run     func(ctx context.Context, rule alerting.Rule, streak int)
	timeout time.Duration
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

type job struct {
	rule     alerting.Rule
	interval time.Duration
	streak   int
	stop     chan struct{}
}

type jobRun struct {
	rule   alerting.Rule
	streak int
}

type jobInfo struct {
	RuleID          string `json:"ruleId"`
	IntervalSeconds int    `json:"intervalSeconds"`
}

func newScheduler(workers int, timeout time.Duration, run func(ctx context.Context, rule alerting.Rule, streak int), logger *slog.Logger) *scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &scheduler{
		jobs:    map[string]*job{},
		queue:   make(chan jobRun, 128),
		workers: workers,
		run:     run,
		timeout: timeout,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	for i := 0; i < workers; i++ {
		go s.worker()
	}
	return s
}

func (s *scheduler) stop() {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		close(j.stop)
	}
	s.jobs = map[string]*job{}
}

func (s *scheduler) schedule(rule alerting.Rule, interval time.Duration, streak int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.jobs[rule.ID]; ok {
		close(existing.stop)
	}
	j := &job{rule: rule, interval: interval, streak: streak, stop: make(chan struct{})}
	s.jobs[rule.ID] = j
	go s.runTicker(j)
}

func (s *scheduler) unschedule(ruleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[ruleID]; ok {
		close(j.stop)
		delete(s.jobs, ruleID)
	}
}

func (s *scheduler) listJobs() []jobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]jobInfo, 0, len(s.jobs))
	for id, j := range s.jobs {
		jobs = append(jobs, jobInfo{RuleID: id, IntervalSeconds: int(j.interval / time.Second)})
	}
	return jobs
}

func (s *scheduler) runTicker(j *job) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			select {
			case s.queue <- jobRun{rule: j.rule, streak: j.streak}:
			default:
				s.logger.Warn("evaluation queue full, dropping tick", slog.String("ruleId", j.rule.ID))
			}
		case <-j.stop:
			return
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *scheduler) worker() {
	for {
		select {
		case run := <-s.queue:
			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			s.run(ctx, run.rule, run.streak)
			cancel()
		case <-s.ctx.Done():
			return
		}
	}
}
