package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// StdoutLogger is a tiny, structured logger that prints JSON lines.
// It implements Logger.
type StdoutLogger struct {
	component string
	minLevel  int
	fields    []Field

	mu  *sync.Mutex
	out io.Writer
}

var levels = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// NewStdoutLogger creates a new StdoutLogger. component is optional and is
// printed on every line.
func NewStdoutLogger(component string) *StdoutLogger {
	return NewWriterLogger(component, "debug", os.Stdout)
}

// NewWriterLogger creates a logger writing to w, dropping lines below level.
// Unknown levels fall back to "info".
func NewWriterLogger(component, level string, w io.Writer) *StdoutLogger {
	lvl, ok := levels[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		lvl = levels["info"]
	}
	return &StdoutLogger{component: component, minLevel: lvl, mu: &sync.Mutex{}, out: w}
}

func (s *StdoutLogger) log(level string, msg string, fields ...Field) {
	if levels[level] < s.minLevel {
		return
	}
	type outEntry struct {
		Level     string         `json:"level"`
		Msg       string         `json:"msg"`
		Component string         `json:"component,omitempty"`
		Time      string         `json:"time"`
		Fields    map[string]any `json:"fields,omitempty"`
	}
	m := make(map[string]any, len(s.fields)+len(fields))
	for _, f := range s.fields {
		m[f.Key] = f.Value
	}
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	entry := outEntry{
		Level:     level,
		Msg:       msg,
		Component: s.component,
		Time:      time.Now().UTC().Format(time.RFC3339),
		Fields:    m,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	enc, err := json.Marshal(entry)
	if err != nil {
		// Fallback simple formatting if JSON marshal fails
		fmt.Fprintf(s.out, "%s %s %v\n", level, msg, m)
		return
	}
	fmt.Fprintln(s.out, string(enc))
}

func (s *StdoutLogger) Debug(msg string, fields ...Field) {
	s.log("debug", msg, fields...)
}

func (s *StdoutLogger) Info(msg string, fields ...Field) {
	s.log("info", msg, fields...)
}

func (s *StdoutLogger) Warn(msg string, fields ...Field) {
	s.log("warn", msg, fields...)
}

func (s *StdoutLogger) Error(msg string, fields ...Field) {
	s.log("error", msg, fields...)
}

// With returns a child logger. A "component" field renames the component;
// every other field is attached to each line the child prints.
func (s *StdoutLogger) With(fields ...Field) Logger {
	child := &StdoutLogger{
		component: s.component,
		minLevel:  s.minLevel,
		fields:    append([]Field(nil), s.fields...),
		mu:        s.mu,
		out:       s.out,
	}
	for _, f := range fields {
		if f.Key == "component" {
			if str, ok := f.Value.(string); ok {
				child.component = str
				continue
			}
		}
		child.fields = append(child.fields, f)
	}
	return child
}
