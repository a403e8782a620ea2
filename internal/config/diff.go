package config

import (
	"sort"
	"strings"

	logx "notifykit/pkg/logx"
)

// SummarizeConfigChange returns the changed section names, log fields
// describing the new values (never secrets), and the names of jobs that
// were added, removed or modified.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field, []string) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	ol, nl := oldCfg.Logging, newCfg.Logging
	if ol.Level != nl.Level || ol.Console != nl.Console ||
		ol.File != nl.File ||
		ol.Telegram.Enabled != nl.Telegram.Enabled ||
		ol.Telegram.ChatID != nl.Telegram.ChatID ||
		ol.Telegram.BotToken != nl.Telegram.BotToken ||
		ol.Telegram.MinLevel != nl.Telegram.MinLevel ||
		ol.Telegram.RatePerSec != nl.Telegram.RatePerSec {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", nl.Level),
			logx.Bool("logging.console", nl.Console),
			logx.Bool("logging.file_enabled", nl.File.Enabled),
			logx.Bool("logging.telegram_enabled", nl.Telegram.Enabled),
		)
	}

	if oldCfg.HTTP != newCfg.HTTP {
		changed = append(changed, "http")
		attrs = append(attrs,
			logx.String("http.timeout", strings.TrimSpace(newCfg.HTTP.Timeout)),
			logx.Bool("http.telegram_api_url_set", strings.TrimSpace(newCfg.HTTP.TelegramAPIURL) != ""),
		)
	}

	if oldCfg.Defaults != newCfg.Defaults {
		changed = append(changed, "defaults")
		attrs = append(attrs,
			logx.String("defaults.username", newCfg.Defaults.Username),
			logx.String("defaults.title", newCfg.Defaults.Title),
			logx.String("defaults.filename", newCfg.Defaults.Filename),
		)
	}

	var oS, nS StorageConfig
	if oldCfg.Storage != nil {
		oS = *oldCfg.Storage
	}
	if newCfg.Storage != nil {
		nS = *newCfg.Storage
	}
	if oS != nS {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(nS.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(nS.Path) != ""),
		)
	}

	if oldCfg.Scheduler != newCfg.Scheduler {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.Bool("scheduler.enabled", newCfg.Scheduler.Enabled),
			logx.String("scheduler.timezone", strings.TrimSpace(newCfg.Scheduler.Timezone)),
		)
	}

	if oldCfg.Status != newCfg.Status {
		changed = append(changed, "status")
		attrs = append(attrs,
			logx.Bool("status.enabled", newCfg.Status.Enabled),
			logx.String("status.addr", strings.TrimSpace(newCfg.Status.Addr)),
			logx.Bool("status.pprof", newCfg.Status.Pprof),
		)
	}

	jobs := diffJobs(oldCfg.Jobs, newCfg.Jobs)
	if len(jobs) > 0 {
		changed = append(changed, "jobs")
		attrs = append(attrs,
			logx.Int("jobs.changed_count", len(jobs)),
			logx.Int("jobs.total", len(newCfg.Jobs)),
		)
	}

	sort.Strings(changed)
	return changed, attrs, jobs
}

func diffJobs(oldJobs, newJobs []JobConfig) []string {
	index := func(js []JobConfig) map[string]JobConfig {
		m := make(map[string]JobConfig, len(js))
		for _, j := range js {
			m[strings.TrimSpace(j.Name)] = j
		}
		return m
	}
	oldM, newM := index(oldJobs), index(newJobs)

	set := map[string]struct{}{}
	for k := range oldM {
		set[k] = struct{}{}
	}
	for k := range newM {
		set[k] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for name := range set {
		o, inOld := oldM[name]
		n, inNew := newM[name]
		if inOld != inNew || !sameJob(o, n) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func sameJob(a, b JobConfig) bool {
	return a.Schedule == b.Schedule &&
		a.Tool == b.Tool &&
		a.Disabled == b.Disabled &&
		hashArgs(a.Args) == hashArgs(b.Args)
}
