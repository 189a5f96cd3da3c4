package gelf

import (
	"encoding/json"
	"net"
	"os"
	"strings"
	"time"
)

// Writer sends GELF messages over UDP. It implements zapcore.WriteSyncer and
// expects each Write to carry one JSON-encoded zap entry.
type Writer struct {
	conn     net.Conn
	hostname string
	service  string
}

// New creates a GELF UDP writer connected to addr (e.g. "172.17.0.1:12201").
func New(addr, service string) (*Writer, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = service
	}

	return &Writer{conn: conn, hostname: hostname, service: service}, nil
}

// Write implements io.Writer. Each call sends one GELF message. Keys of the
// zap entry other than level, ts and msg become GELF additional fields.
func (w *Writer) Write(p []byte) (int, error) {
	payload, err := w.encode(p)
	if err != nil {
		return len(p), nil // never fail the log call
	}

	// Fire-and-forget
	w.conn.Write(payload)
	return len(p), nil
}

// Sync implements zapcore.WriteSyncer. UDP has nothing to flush.
func (w *Writer) Sync() error { return nil }

func (w *Writer) Close() error { return w.conn.Close() }

func (w *Writer) encode(p []byte) ([]byte, error) {
	line := strings.TrimRight(string(p), "\n")

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		// Not JSON: ship the raw line as the message.
		entry = map[string]any{"msg": line}
	}

	short, _ := entry["msg"].(string)
	if short == "" {
		short = line
	}
	levelName, _ := entry["level"].(string)

	msg := map[string]any{
		"version":       "1.1",
		"host":          w.hostname,
		"short_message": short,
		"timestamp":     float64(time.Now().UnixNano()) / 1e9,
		"level":         syslogLevel(levelName),
		"_service":      w.service,
	}
	for k, v := range entry {
		switch k {
		case "msg", "level", "ts", "id":
			continue
		}
		msg["_"+sanitizeKey(k)] = v
	}
	return json.Marshal(msg)
}

func syslogLevel(level string) int {
	switch level {
	case "debug":
		return 7
	case "warn":
		return 4
	case "error":
		return 3
	case "dpanic", "panic", "fatal":
		return 2
	default:
		return 6 // Informational
	}
}

// GELF additional field names must match ^[\w\.\-]*$.
func sanitizeKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			return r
		}
		return '_'
	}, k)
}
