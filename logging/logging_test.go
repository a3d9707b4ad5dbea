package logging

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

func newBufferLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})
	l.SetLevel(logrus.DebugLevel)
	return l, &buf
}

// TestNewLogger tests the NewLogger function
func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		pkg      string
		function string
	}{
		{name: "basic function", pkg: "digest", function: "SumSHA1"},
		{name: "empty function", pkg: "asym", function: ""},
		{name: "root package", pkg: "cryptoengine", function: "New"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.pkg, tt.function)

			if logger.function != tt.function {
				t.Errorf("NewLogger() function = %v, want %v", logger.function, tt.function)
			}
			if logger.pkg != tt.pkg {
				t.Errorf("NewLogger() pkg = %v, want %v", logger.pkg, tt.pkg)
			}
			if logger.fields["function"] != tt.function {
				t.Errorf("NewLogger() fields[function] = %v, want %v", logger.fields["function"], tt.function)
			}
			if logger.fields["package"] != tt.pkg {
				t.Errorf("NewLogger() fields[package] = %v, want %v", logger.fields["package"], tt.pkg)
			}
			if logger.logger != logrus.StandardLogger() {
				t.Error("NewLogger() should default to the standard logger")
			}
		})
	}
}

// TestLoggerHelper_WithCaller tests the WithCaller method
func TestLoggerHelper_WithCaller(t *testing.T) {
	logger := NewLogger("asym", "TestFunction")
	loggerWithCaller := logger.WithCaller()

	caller, ok := loggerWithCaller.fields["caller"].(string)
	if !ok || !strings.Contains(caller, ":") {
		t.Errorf("WithCaller() caller = %v, want file:line", loggerWithCaller.fields["caller"])
	}
	if fn, _ := loggerWithCaller.fields["caller_func"].(string); fn == "" {
		t.Error("WithCaller() caller_func should not be empty")
	}
	if loggerWithCaller != logger {
		t.Error("WithCaller() should return same logger instance for chaining")
	}
}

// TestLoggerHelper_WithError tests error decoration, including a nil error
func TestLoggerHelper_WithError(t *testing.T) {
	logger := NewLogger("asym", "RSA").WithError(errors.New("boom"), "verification", "unpad")
	if logger.fields["error"] != "boom" {
		t.Errorf("error field = %v, want boom", logger.fields["error"])
	}
	if logger.fields["error_type"] != "verification" || logger.fields["operation"] != "unpad" {
		t.Errorf("unexpected fields %v", logger.fields)
	}

	nilErr := NewLogger("asym", "RSA").WithError(nil, "none", "noop")
	if _, exists := nilErr.fields["error"]; exists {
		t.Error("WithError(nil) should not add an error field")
	}
}

// TestLoggerHelper_LoggingMethods tests that each level reaches the configured logger
func TestLoggerHelper_LoggingMethods(t *testing.T) {
	l, buf := newBufferLogger()

	tests := []struct {
		name  string
		log   func(*LoggerHelper, string)
		level string
	}{
		{"debug", (*LoggerHelper).Debug, "level=debug"},
		{"info", (*LoggerHelper).Info, "level=info"},
		{"warn", (*LoggerHelper).Warn, "level=warning"},
		{"error", (*LoggerHelper).Error, "level=error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.log(NewLogger("opcache", "Evict").WithLogger(l), "message "+tt.name)

			out := buf.String()
			if !strings.Contains(out, tt.level) {
				t.Errorf("output %q missing %q", out, tt.level)
			}
			if !strings.Contains(out, "package=opcache") || !strings.Contains(out, "function=Evict") {
				t.Errorf("output %q missing standard fields", out)
			}
		})
	}
}

// TestLoggerHelper_EntryExit tests the entry and exit debug helpers
func TestLoggerHelper_EntryExit(t *testing.T) {
	l, buf := newBufferLogger()
	h := NewLogger("entropy", "Reseed").WithLogger(l)

	h.Entry("reseeding")
	h.Exit()

	out := buf.String()
	if !strings.Contains(out, "Function entry: reseeding") {
		t.Errorf("missing entry line in %q", out)
	}
	if !strings.Contains(out, "Function exit: Reseed") {
		t.Errorf("missing exit line in %q", out)
	}
}

// TestSecureFieldHash tests that previews are truncated
func TestSecureFieldHash(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		preview string
	}{
		{"nil", nil, "nil"},
		{"short", []byte{0xde, 0xad}, "dead"},
		{"exact", []byte{1, 2, 3, 4, 5, 6, 7, 8}, "0102030405060708"},
		{"long", []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}, "0102030405060708..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := SecureFieldHash(tt.data, "modulus")
			if fields["modulus_preview"] != tt.preview {
				t.Errorf("preview = %v, want %v", fields["modulus_preview"], tt.preview)
			}
			if fields["modulus_size"] != len(tt.data) {
				t.Errorf("size = %v, want %v", fields["modulus_size"], len(tt.data))
			}
		})
	}
}

// TestSizeField tests that only the length is recorded
func TestSizeField(t *testing.T) {
	fields := SizeField([]byte("secret"), "key")
	if len(fields) != 1 || fields["key_size"] != 6 {
		t.Errorf("SizeField() = %v", fields)
	}
}

// TestOperationFields tests merging of additional fields
func TestOperationFields(t *testing.T) {
	fields := OperationFields("rsa", "cache_hit", logrus.Fields{"pad_type": 1}, logrus.Fields{"bits": 512})

	want := logrus.Fields{"operation": "rsa", "status": "cache_hit", "pad_type": 1, "bits": 512}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("fields[%s] = %v, want %v", k, fields[k], v)
		}
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	if err != nil || lvl != logrus.InfoLevel {
		t.Errorf("ParseLevel(\"\") = %v, %v", lvl, err)
	}
	lvl, err = ParseLevel("debug")
	if err != nil || lvl != logrus.DebugLevel {
		t.Errorf("ParseLevel(debug) = %v, %v", lvl, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("ParseLevel(loud) should fail")
	}
}

// TestLoggerConcurrency tests that independent helpers can log concurrently
func TestLoggerConcurrency(t *testing.T) {
	l, _ := newBufferLogger()
	l.SetOutput(&bytes.Buffer{})
	l.SetLevel(logrus.InfoLevel)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			NewLogger("cryptoengine", "worker").WithLogger(l).WithField("id", i).Debug("work")
		}(i)
	}
	wg.Wait()
}
