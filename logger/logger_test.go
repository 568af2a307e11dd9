package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/heraldai/herald/sym"
)

// newObserved swaps the global logger for an in-memory core and
// registers cleanup to restore the package default.
func newObserved(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	Logger = zap.New(core).Sugar()
	t.Cleanup(func() { Logger = nopLogger })
	return logs
}

func TestInitialize(t *testing.T) {
	t.Cleanup(func() {
		Logger = nopLogger
		JSONOutput = false
	})

	t.Run("console", func(t *testing.T) {
		Logger = nil
		JSONOutput = true

		if err := Initialize(false); err != nil {
			t.Fatalf("Initialize(false) = %v", err)
		}
		if Logger == nil {
			t.Fatal("Initialize did not set the global logger")
		}
		if JSONOutput {
			t.Error("JSONOutput should be false in console mode")
		}

		core := Logger.Desugar().Core()
		if !core.Enabled(zapcore.InfoLevel) {
			t.Error("info entries should be enabled by default")
		}
		if core.Enabled(zapcore.DebugLevel) {
			t.Error("debug entries should be gated by default")
		}
	})

	t.Run("json", func(t *testing.T) {
		Logger = nil
		JSONOutput = false

		if err := Initialize(true); err != nil {
			t.Fatalf("Initialize(true) = %v", err)
		}
		if Logger == nil {
			t.Fatal("Initialize did not set the global logger")
		}
		if !JSONOutput {
			t.Error("JSONOutput should be true in JSON mode")
		}
	})
}

func TestInitializeWithLevel(t *testing.T) {
	t.Cleanup(func() {
		Logger = nopLogger
		JSONOutput = false
	})

	tests := []struct {
		name       string
		jsonOutput bool
		level      zapcore.Level
	}{
		{name: "console at warn", jsonOutput: false, level: zapcore.WarnLevel},
		{name: "console at debug", jsonOutput: false, level: zapcore.DebugLevel},
		{name: "json at info", jsonOutput: true, level: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil

			if err := InitializeWithLevel(tt.jsonOutput, tt.level); err != nil {
				t.Fatalf("InitializeWithLevel() error = %v", err)
			}
			if Logger == nil {
				t.Fatal("InitializeWithLevel() did not set global Logger")
			}

			core := Logger.Desugar().Core()
			if tt.level <= zapcore.DebugLevel && !core.Enabled(zapcore.DebugLevel) {
				t.Error("debug level requested but core does not enable debug entries")
			}
			if tt.level >= zapcore.WarnLevel && core.Enabled(zapcore.InfoLevel) {
				t.Error("warn level requested but core still enables info entries")
			}
		})
	}
}

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zapcore.Level
	}{
		{VerbosityUser, zapcore.WarnLevel},
		{VerbosityInfo, zapcore.InfoLevel},
		{VerbosityDebug, zapcore.DebugLevel},
		{VerbosityTrace, zapcore.DebugLevel},
		{VerbosityAll, zapcore.DebugLevel},
		{99, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		if got := VerbosityToLevel(tt.verbosity); got != tt.want {
			t.Errorf("VerbosityToLevel(%d) = %v, want %v", tt.verbosity, got, tt.want)
		}
	}
}

func TestShouldOutput(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		category  OutputCategory
		want      bool
	}{
		{"errors always shown", VerbosityUser, OutputErrors, true},
		{"dispatch status hidden at user level", VerbosityUser, OutputDispatchStatus, false},
		{"dispatch status shown at -v", VerbosityInfo, OutputDispatchStatus, true},
		{"schedule math hidden at -v", VerbosityInfo, OutputSchedule, false},
		{"schedule math shown at -vv", VerbosityDebug, OutputSchedule, true},
		{"claim cycles shown at -vvv", VerbosityTrace, OutputClaimCycles, true},
		{"request bodies only at -vvvv", VerbosityTrace, OutputRequestBody, false},
		{"request bodies at -vvvv", VerbosityAll, OutputRequestBody, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldOutput(tt.verbosity, tt.category); got != tt.want {
				t.Errorf("ShouldOutput(%d, %s) = %v, want %v",
					tt.verbosity, CategoryName(tt.category), got, tt.want)
			}
		})
	}
}

func TestForwarders(t *testing.T) {
	logs := newObserved(t)

	Info("a")
	Infof("a %d", 1)
	Infow("a", "k", "v")
	Warn("b")
	Warnf("b %d", 2)
	Warnw("b", "k", "v")
	Error("c")
	Errorf("c %d", 3)
	Errorw("c", "k", "v")
	Debug("d")
	Debugf("d %d", 4)
	Debugw("d", "k", "v")

	if got := logs.Len(); got != 12 {
		t.Fatalf("recorded %d entries, want 12", got)
	}

	byLevel := make(map[zapcore.Level]int)
	for _, entry := range logs.All() {
		byLevel[entry.Level]++
	}
	for level, want := range map[zapcore.Level]int{
		zapcore.InfoLevel:  3,
		zapcore.WarnLevel:  3,
		zapcore.ErrorLevel: 3,
		zapcore.DebugLevel: 3,
	} {
		if byLevel[level] != want {
			t.Errorf("%v entries = %d, want %d", level, byLevel[level], want)
		}
	}
}

func TestSymbolHelpers(t *testing.T) {
	logs := newObserved(t)

	tests := []struct {
		name   string
		log    func()
		symbol string
		level  zapcore.Level
	}{
		{"ChimeInfow", func() { ChimeInfow("claimed", "job_id", "job_1") }, sym.Chime, zapcore.InfoLevel},
		{"ChimeDebugw", func() { ChimeDebugw("tick") }, sym.Chime, zapcore.DebugLevel},
		{"ChimeWarnw", func() { ChimeWarnw("slow tick") }, sym.Chime, zapcore.WarnLevel},
		{"ChimeErrorw", func() { ChimeErrorw("dispatch failed") }, sym.Chime, zapcore.ErrorLevel},
		{"ChimeOpenInfow", func() { ChimeOpenInfow("daemon started") }, sym.ChimeOpen, zapcore.InfoLevel},
		{"ChimeCloseInfow", func() { ChimeCloseInfow("daemon stopped") }, sym.ChimeClose, zapcore.InfoLevel},
		{"NotifyInfow", func() { NotifyInfow("delivered") }, sym.Notify, zapcore.InfoLevel},
		{"NotifyDebugw", func() { NotifyDebugw("rate limited") }, sym.Notify, zapcore.DebugLevel},
		{"DBInfow", func() { DBInfow("migrated") }, sym.DB, zapcore.InfoLevel},
		{"DBDebugw", func() { DBDebugw("queried") }, sym.DB, zapcore.DebugLevel},
		{"SymbolInfow", func() { SymbolInfow(sym.Task, "created") }, sym.Task, zapcore.InfoLevel},
		{"WithSymbol", func() { WithSymbol(sym.Agent).Infow("spawned") }, sym.Agent, zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := logs.Len()
			tt.log()

			entries := logs.All()[before:]
			if len(entries) != 1 {
				t.Fatalf("recorded %d entries, want 1", len(entries))
			}
			entry := entries[0]
			if entry.Level != tt.level {
				t.Errorf("level = %v, want %v", entry.Level, tt.level)
			}
			if got := entry.ContextMap()[FieldSymbol]; got != tt.symbol {
				t.Errorf("symbol field = %v, want %q", got, tt.symbol)
			}
		})
	}
}

// Every package-level entry point must be callable before Initialize
// and after Cleanup, when the global logger may be nil.
func TestNilLoggerSafety(t *testing.T) {
	Logger = nil
	t.Cleanup(func() { Logger = nopLogger })

	Info("test")
	Infof("test %s", "format")
	Infow("test", "key", "value")
	Warn("test")
	Warnf("test %s", "format")
	Warnw("test", "key", "value")
	Error("test")
	Errorf("test %s", "format")
	Errorw("test", "key", "value")
	Debug("test")
	Debugf("test %s", "format")
	Debugw("test", "key", "value")

	ChimeInfow("test")
	ChimeDebugw("test")
	ChimeWarnw("test")
	ChimeErrorw("test")
	ChimeOpenInfow("test")
	ChimeCloseInfow("test")
	NotifyInfow("test")
	NotifyDebugw("test")
	DBInfow("test")
	DBDebugw("test")
	SymbolInfow(sym.Chime, "test")
	WithSymbol(sym.Chime).Infow("test")

	Cleanup()
}

func TestCleanup(t *testing.T) {
	t.Cleanup(func() { Logger = nopLogger })

	t.Run("initialized", func(t *testing.T) {
		core, _ := observer.New(zapcore.InfoLevel)
		Logger = zap.New(core).Sugar()

		Cleanup()

		if Logger == nil {
			t.Error("Cleanup should leave the logger usable")
		}
	})

	t.Run("nil logger", func(t *testing.T) {
		Logger = nil
		Cleanup()
	})
}

func BenchmarkInfow(b *testing.B) {
	Logger = zap.NewNop().Sugar()
	defer func() { Logger = nopLogger }()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Infow("bench", "iteration", i, "key", "value")
	}
}

func BenchmarkChimeInfow(b *testing.B) {
	Logger = zap.NewNop().Sugar()
	defer func() { Logger = nopLogger }()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ChimeInfow("bench", "job_id", "job_1")
	}
}

func BenchmarkParallelLogging(b *testing.B) {
	Logger = zap.NewNop().Sugar()
	defer func() { Logger = nopLogger }()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			Infow("parallel log", "key", "value")
		}
	})
}
