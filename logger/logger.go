package logger

// Logger is the structured logger used by every component. Fields are
// attached as key/value pairs.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

type NoopLogger struct{}

func (NoopLogger) Debug(string, map[string]any) {}
func (NoopLogger) Info(string, map[string]any)  {}
func (NoopLogger) Warn(string, map[string]any)  {}
func (NoopLogger) Error(string, map[string]any) {}

// componentLogger stamps every entry with a fixed set of fields.
type componentLogger struct {
	next   Logger
	fields map[string]any
}

// With returns a Logger that adds fields to every entry. Per-call fields win
// over the fixed ones.
func With(l Logger, fields map[string]any) Logger {
	if l == nil {
		return NoopLogger{}
	}
	return &componentLogger{next: l, fields: fields}
}

// Named is With(l, {"component": name}).
func Named(l Logger, name string) Logger {
	return With(l, map[string]any{"component": name})
}

func (c *componentLogger) merge(fields map[string]any) map[string]any {
	out := make(map[string]any, len(c.fields)+len(fields))
	for k, v := range c.fields {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func (c *componentLogger) Debug(msg string, fields map[string]any) {
	c.next.Debug(msg, c.merge(fields))
}

func (c *componentLogger) Info(msg string, fields map[string]any) {
	c.next.Info(msg, c.merge(fields))
}

func (c *componentLogger) Warn(msg string, fields map[string]any) {
	c.next.Warn(msg, c.merge(fields))
}

func (c *componentLogger) Error(msg string, fields map[string]any) {
	c.next.Error(msg, c.merge(fields))
}
