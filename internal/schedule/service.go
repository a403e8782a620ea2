package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"notifykit/internal/notify"
	logx "notifykit/pkg/logx"
)

// OriginSchedule tags dispatches started by a job.
const OriginSchedule = "schedule"

type Config struct {
	Enabled  bool
	Timezone string
}

// Job calls Tool with Args every time Schedule fires.
type Job struct {
	Name     string
	Schedule string
	Tool     string
	Args     map[string]any
}

// Invoker runs a named tool. *tools.Registry satisfies it.
type Invoker interface {
	Has(name string) bool
	Call(ctx context.Context, name string, args map[string]any) notify.Result
}

// JobInfo describes a registered job for status output.
type JobInfo struct {
	Name     string
	Schedule string
	Tool     string
	Next     time.Time
	Prev     time.Time
	Runs     uint64
	LastOK   bool
	LastMsg  string
	LastTook time.Duration
}

type jobDef struct {
	Job
	spec    ParsedSpec
	entryID cron.EntryID

	// guarded by Service.stateMu
	runs     uint64
	lastOK   bool
	lastMsg  string
	lastTook time.Duration
}

// Service triggers jobs with robfig/cron. A firing runs one tool call
// synchronously; a job still running when it fires again is skipped.
type Service struct {
	mu      sync.Mutex
	applyMu sync.Mutex

	log    logx.Logger
	cfg    Config
	loc    *time.Location
	inv    Invoker
	parser cron.Parser
	c      *cron.Cron
	defs   []*jobDef
	base   context.Context
	cancel context.CancelFunc

	stateMu sync.Mutex
}

func New(cfg Config, inv Invoker, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg: cfg,
		inv: inv,
		log: log.With(logx.String("comp", "schedule")),
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Check validates jobs without registering them: schedules must parse and
// tools must exist.
func (s *Service) Check(jobs []Job) error {
	_, err := s.compile(jobs)
	return err
}

func (s *Service) compile(jobs []Job) ([]*jobDef, error) {
	var errs []error
	defs := make([]*jobDef, 0, len(jobs))
	seen := map[string]bool{}
	for _, j := range jobs {
		name := strings.TrimSpace(j.Name)
		if name == "" {
			errs = append(errs, errors.New("job name required"))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("job %q: duplicate name", name))
			continue
		}
		seen[name] = true

		spec, err := ParseSchedule(j.Schedule)
		if err != nil {
			errs = append(errs, fmt.Errorf("job %q: %w", name, err))
			continue
		}
		if spec.Kind == SpecCron {
			if _, err := s.parser.Parse(spec.Cron); err != nil {
				errs = append(errs, fmt.Errorf("job %q: invalid cron %q: %w", name, spec.Cron, err))
				continue
			}
		}
		if s.inv != nil && !s.inv.Has(j.Tool) {
			errs = append(errs, fmt.Errorf("job %q: unknown tool %q", name, j.Tool))
			continue
		}
		j.Name = name
		defs = append(defs, &jobDef{Job: j, spec: spec})
	}
	return defs, errors.Join(errs...)
}

// Apply replaces the config and job set. When running, cron is rebuilt
// so timezone and job changes take effect immediately. The old cron is
// drained without holding s.mu.
func (s *Service) Apply(cfg Config, jobs []Job) error {
	defs, err := s.compile(jobs)
	if err != nil {
		return err
	}

	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.Lock()
	old := s.c
	s.c = nil
	s.mu.Unlock()
	if old != nil {
		<-old.Stop().Done()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.carryStats(defs)
	s.cfg = cfg
	s.defs = defs
	if s.base == nil {
		// not started, or stopped while draining
		return nil
	}
	if cfg.Enabled {
		s.startCronLocked()
	} else {
		s.c = s.newCronLocked()
		s.log.Info("scheduler disabled")
	}
	return nil
}

// carryStats keeps run counters for jobs that survive a reload by name.
func (s *Service) carryStats(next []*jobDef) {
	prev := make(map[string]*jobDef, len(s.defs))
	for _, d := range s.defs {
		prev[d.Name] = d
	}
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	for _, d := range next {
		if p, ok := prev[d.Name]; ok {
			d.runs, d.lastOK, d.lastMsg, d.lastTook = p.runs, p.lastOK, p.lastMsg, p.lastTook
		}
	}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Start begins triggering. Jobs run with a context derived from ctx, so
// cancelling ctx aborts in-flight sends.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.base != nil {
		return
	}
	s.base, s.cancel = context.WithCancel(notify.WithOrigin(ctx, OriginSchedule))
	if !s.cfg.Enabled {
		s.log.Info("scheduler disabled")
		// keep a stopped cron so Apply can enable it later
		s.c = s.newCronLocked()
		return
	}
	s.startCronLocked()
}

// Stop cancels in-flight jobs, halts triggering and waits for running
// jobs to return or ctx.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	c := s.c
	s.c = nil
	cancel := s.cancel
	s.base, s.cancel = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
		}
	}
	s.log.Info("scheduler stopped", logx.Duration("took", time.Since(start)))
}

func (s *Service) newCronLocked() *cron.Cron {
	s.loc = s.loadLocationLocked()
	cl := cronLogger{log: s.log}
	return cron.New(
		cron.WithParser(s.parser),
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
}

func (s *Service) startCronLocked() {
	s.c = s.newCronLocked()
	for _, d := range s.defs {
		if err := s.addLocked(d); err != nil {
			s.log.Warn("job registration failed", logx.String("job", d.Name), logx.Err(err))
		}
	}
	s.c.Start()
	s.log.Info("scheduler started", logx.String("tz", s.loc.String()), logx.Int("jobs", len(s.defs)))
}

func (s *Service) addLocked(d *jobDef) error {
	ctx := s.base
	job := cron.FuncJob(func() {
		if ctx == nil || ctx.Err() != nil {
			return
		}
		s.runJob(ctx, d)
	})
	if d.spec.Kind == SpecInterval {
		d.entryID = s.c.Schedule(withStartupSpread(d.spec.Every, time.Now().In(s.loc), d.Name), job)
		return nil
	}
	id, err := s.c.AddJob(d.spec.Cron, job)
	if err != nil {
		return err
	}
	d.entryID = id
	return nil
}

// runJob invokes d's tool once and records the outcome on d.
func (s *Service) runJob(ctx context.Context, d *jobDef) notify.Result {
	if notify.OriginFrom(ctx) == "" {
		ctx = notify.WithOrigin(ctx, OriginSchedule)
	}
	res := s.inv.Call(ctx, d.Tool, d.Args)

	s.stateMu.Lock()
	d.runs++
	d.lastOK = res.OK
	d.lastMsg = res.String()
	d.lastTook = res.Took
	s.stateMu.Unlock()

	if !res.OK {
		s.log.Warn("job failed", logx.String("job", d.Name), logx.String("tool", d.Tool), logx.String("result", res.String()))
	}
	return res
}

// Trigger runs the named job immediately, outside its schedule.
func (s *Service) Trigger(ctx context.Context, name string) (notify.Result, error) {
	s.mu.Lock()
	var d *jobDef
	for _, x := range s.defs {
		if x.Name == name {
			d = x
			break
		}
	}
	s.mu.Unlock()
	if d == nil {
		return notify.Result{}, fmt.Errorf("unknown job %q", name)
	}
	return s.runJob(ctx, d), nil
}

// Jobs returns the registered jobs sorted by name.
func (s *Service) Jobs() []JobInfo {
	s.mu.Lock()
	defs := append([]*jobDef(nil), s.defs...)
	ids := make([]cron.EntryID, len(defs))
	for i, d := range defs {
		ids[i] = d.entryID
	}
	c := s.c
	loc := s.loc
	s.mu.Unlock()
	if loc == nil {
		loc = time.Local
	}

	out := make([]JobInfo, 0, len(defs))
	now := time.Now().In(loc)
	for i, d := range defs {
		it := JobInfo{Name: d.Name, Schedule: d.spec.Expr(), Tool: d.Tool}
		if c != nil && ids[i] != 0 {
			e := c.Entry(ids[i])
			it.Next, it.Prev = e.Next, e.Prev
		} else if sched, err := s.parser.Parse(d.spec.Expr()); err == nil {
			it.Next = sched.Next(now)
		}
		s.stateMu.Lock()
		it.Runs, it.LastOK, it.LastMsg, it.LastTook = d.runs, d.lastOK, d.lastMsg, d.lastTook
		s.stateMu.Unlock()
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; using local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
