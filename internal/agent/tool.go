package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"

	"github.com/ezqanoon/statute-bot/internal/assistant"
)

// ToolKind tells the run loop how to execute a tool.
type ToolKind int

const (
	// LocalFunction tools run a Go function in-process.
	LocalFunction ToolKind = iota
	// SubAgent tools run a nested agent through the run loop.
	SubAgent
)

func (k ToolKind) String() string {
	switch k {
	case LocalFunction:
		return "function"
	case SubAgent:
		return "sub_agent"
	default:
		return "unknown"
	}
}

// Tool is something the model may ask to invoke.
type Tool struct {
	Schema Schema
	Kind   ToolKind

	fn    func(ctx context.Context, args json.RawMessage) (string, error)
	agent *Agent
}

// Name returns the tool's name.
func (t Tool) Name() string { return t.Schema.Name }

// Agent returns the nested agent of a SubAgent tool.
func (t Tool) Agent() *Agent { return t.agent }

// Call executes a LocalFunction tool.
func (t Tool) Call(ctx context.Context, args json.RawMessage) (string, error) {
	if t.Kind != LocalFunction || t.fn == nil {
		return "", fmt.Errorf("tool %s is not a local function", t.Name())
	}
	return t.fn(ctx, args)
}

// Definition converts the schema for registration with the host.
func (t Tool) Definition() assistant.ToolDefinition {
	return assistant.ToolDefinition{
		Name:        t.Schema.Name,
		Description: t.Schema.Description,
		Parameters:  t.Schema.Parameters,
	}
}

// FunctionTool wraps fn as a tool. The parameter schema is derived from the
// argument struct T (see SchemaFor). Calls are logged and otherwise passed
// through unchanged.
func FunctionTool[T any](name, description string, fn func(ctx context.Context, args T) (string, error)) Tool {
	var zero T
	schema := SchemaFor(name, description, zero)
	fields := fieldsOf(reflect.TypeOf(zero))

	return Tool{
		Schema: schema,
		Kind:   LocalFunction,
		fn: func(ctx context.Context, raw json.RawMessage) (string, error) {
			args, err := decodeArgs[T](raw, fields)
			if err != nil {
				return "", fmt.Errorf("decode arguments for %s: %w", name, err)
			}

			log := toolLogger(ctx, name)
			log.Info("tool called", "args", string(raw))
			result, err := fn(ctx, args)
			if err != nil {
				log.Warn("tool failed", "error", err)
				return "", err
			}
			log.Info("tool completed", "result_length", len(result))
			return result, nil
		},
	}
}

type loggerKey struct{}

// withLogger attaches the run's logger so tools log under its trace.
func withLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}

// toolLogger returns the logger of the run executing the tool. Outside a run
// the default logger is used, tagged with the tool name.
func toolLogger(ctx context.Context, name string) *slog.Logger {
	if log, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.Default().With("tool", name)
}

func decodeArgs[T any](raw json.RawMessage, fields []field) (T, error) {
	var args T
	v := reflect.ValueOf(&args).Elem()
	if v.Kind() == reflect.Struct {
		for _, f := range fields {
			if !f.hasDefault {
				continue
			}
			if err := setDefault(v.Field(f.index), f.def); err != nil {
				return args, fmt.Errorf("default for %s: %w", f.name, err)
			}
		}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return args, err
	}
	return args, nil
}

func setDefault(v reflect.Value, def string) error {
	switch v.Kind() {
	case reflect.String:
		v.SetString(def)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(def, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(def, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(def, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(def)
		if err != nil {
			return err
		}
		v.SetBool(b)
	}
	return nil
}
