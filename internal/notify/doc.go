// Package notify sends one-off notifications to a single destination.
//
// A Dispatcher offers one operation per channel:
//   - Discord webhook (success: HTTP 204)
//   - Slack webhook (success: HTTP 200 with body "ok")
//   - Telegram Bot API sendMessage (success: JSON "ok": true)
//   - Console (framed block on stdout, always succeeds)
//   - File (write or append one line)
//
// Every operation returns a Result. Nothing escapes an operation as an error
// or panic: transport failures, provider rejections, local I/O errors and
// unexpected faults are all mapped to a failed Result whose String() starts
// with "Error:".
//
// There is no queue, retry or rate limit. Each call is one attempt.
package notify
