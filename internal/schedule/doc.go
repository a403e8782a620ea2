// Package schedule fires configured tool calls on cron or interval
// schedules.
package schedule
