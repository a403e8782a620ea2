// Package tools exposes the notify operations as named tools with JSON
// Schema parameter objects, so they can be listed, validated and invoked
// by name (CLI "call", scheduled jobs).
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"notifykit/internal/notify"
	logx "notifykit/pkg/logx"
)

const (
	SendDiscord  = "send_discord_message"
	SendSlack    = "send_slack_message"
	SendTelegram = "send_telegram_message"
	SendConsole  = "send_console_message"
	SaveToFile   = "save_message_to_file"
)

// ErrUnknownTool is returned (wrapped in a Result) for an unregistered name.
var ErrUnknownTool = errors.New("unknown tool")

// Definition describes one tool. Parameters is a JSON Schema object.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type handler func(ctx context.Context, d *notify.Dispatcher, args map[string]any) (notify.Result, error)

type tool struct {
	def    Definition
	schema *jsonschema.Schema
	call   handler
}

// Registry maps tool names to dispatcher operations.
type Registry struct {
	d     *notify.Dispatcher
	tools map[string]*tool
	log   logx.Logger
}

// New compiles the parameter schema of every built-in tool.
func New(d *notify.Dispatcher) (*Registry, error) {
	if d == nil {
		return nil, errors.New("tools: dispatcher is nil")
	}
	r := &Registry{d: d, tools: map[string]*tool{}, log: logx.Nop()}
	for _, b := range builtins(d.Defaults()) {
		sch, err := compileSchema(b.def.Name, b.def.Parameters)
		if err != nil {
			return nil, fmt.Errorf("tools: compile %s schema: %w", b.def.Name, err)
		}
		r.tools[b.def.Name] = &tool{def: b.def, schema: sch, call: b.call}
	}
	return r, nil
}

// SetLogger sets where rejected calls are logged. Dispatched calls are
// logged by the dispatcher itself.
func (r *Registry) SetLogger(log logx.Logger) {
	if !log.IsZero() {
		r.log = log
	}
}

// Definitions returns all tools sorted by name.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Has reports whether name is a registered tool.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Validate checks args against the tool's schema without sending anything.
func (r *Registry) Validate(name string, args map[string]any) error {
	t, ok := r.tools[name]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownTool, name)
	}
	return validate(t.schema, args)
}

// Call validates args, decodes them and runs the operation.
// Unknown names and invalid args yield a KindValidation result.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) notify.Result {
	t, ok := r.tools[name]
	if !ok {
		err := fmt.Errorf("%w %q", ErrUnknownTool, name)
		r.log.Warn("tool call rejected", logx.String("tool", name), logx.Err(err))
		return notify.Result{Kind: notify.KindValidation, Err: err, Message: err.Error()}
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := validate(t.schema, args); err != nil {
		return r.rejected(name, err)
	}
	res, err := t.call(ctx, r.d, args)
	if err != nil {
		return r.rejected(name, err)
	}
	return res
}

func (r *Registry) rejected(name string, err error) notify.Result {
	r.log.Warn("tool call rejected", logx.String("tool", name), logx.Err(err))
	return notify.Result{
		Kind:    notify.KindValidation,
		Err:     err,
		Message: fmt.Sprintf("invalid arguments for %s: %v", name, err),
	}
}

// Invoke is Call rendered as the caller-facing string.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) string {
	return r.Call(ctx, name, args).String()
}

func compileSchema(name string, params map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	url := name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return c.Compile(url)
}

func validate(sch *jsonschema.Schema, args map[string]any) error {
	if err := sch.Validate(normalize(args)); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return errors.New(strings.Join(leafMessages(ve), "; "))
		}
		return err
	}
	return nil
}

// normalize round-trips args through JSON so Go-typed values
// (ints, typed strings) validate the same way decoded JSON does.
func normalize(args map[string]any) any {
	b, err := json.Marshal(args)
	if err != nil {
		return args
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return args
	}
	return v
}

func leafMessages(ve *jsonschema.ValidationError) []string {
	if len(ve.Causes) == 0 {
		msg := ve.Message
		if loc := strings.TrimPrefix(ve.InstanceLocation, "/"); loc != "" {
			msg = loc + ": " + msg
		}
		return []string{msg}
	}
	var out []string
	for _, c := range ve.Causes {
		out = append(out, leafMessages(c)...)
	}
	return out
}

// decode copies validated args into a typed message struct.
func decode(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}
