package configx

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	coreerrors "go.eggybyte.com/clientpool/core/errors"
)

type testConfig struct {
	Timeout  time.Duration `env:"TIMEOUT" default:"30s" validate:"gte=0"`
	MaxIdle  int           `env:"MAX_IDLE" default:"100" validate:"gte=0"`
	LogLevel string        `env:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	if err := Load(context.Background(), &cfg, NewMapSource(nil)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Timeout != 30*time.Second || cfg.MaxIdle != 100 || cfg.LogLevel != "info" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_LaterSourcesWin(t *testing.T) {
	var cfg testConfig
	err := Load(context.Background(), &cfg,
		NewMapSource(map[string]string{"TIMEOUT": "1s", "MAX_IDLE": "1"}),
		NewMapSource(map[string]string{"TIMEOUT": "2s"}),
	)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", cfg.Timeout)
	}
	if cfg.MaxIdle != 1 {
		t.Errorf("MaxIdle = %d, want 1", cfg.MaxIdle)
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	var cfg testConfig
	err := Load(context.Background(), &cfg, NewMapSource(map[string]string{"LOG_LEVEL": "verbose", "MAX_IDLE": "-1"}))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !coreerrors.IsCode(err, coreerrors.CodeInvalidArgument) {
		t.Errorf("CodeOf() = %s, want %s", coreerrors.CodeOf(err), coreerrors.CodeInvalidArgument)
	}
	for _, want := range []string{"LogLevel: oneof", "MaxIdle: gte=0"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should contain %q", err, want)
		}
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Error("validator errors should stay reachable through the chain")
	}
}

func TestLoad_BindFailure(t *testing.T) {
	var cfg testConfig
	err := Load(context.Background(), &cfg, NewMapSource(map[string]string{"TIMEOUT": "forever"}))
	if !coreerrors.IsCode(err, coreerrors.CodeInvalidArgument) {
		t.Errorf("expected INVALID_ARGUMENT, got %v", err)
	}
}

type failingSource struct{}

func (failingSource) Load(context.Context) (map[string]string, error) {
	return nil, errors.New("permission denied")
}

func TestMerge_SourceFailure(t *testing.T) {
	_, err := Merge(context.Background(), NewMapSource(nil), failingSource{})
	if !coreerrors.IsCode(err, coreerrors.CodeUnavailable) {
		t.Fatalf("expected UNAVAILABLE, got %v", err)
	}
	if !strings.Contains(err.Error(), "source 1") {
		t.Errorf("error should name the failing source: %v", err)
	}
}

func TestMerge_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Merge(ctx, NewMapSource(nil)); !errors.Is(err, context.Canceled) {
		t.Errorf("Merge() error = %v, want context.Canceled", err)
	}
}

func TestEnvSource(t *testing.T) {
	t.Setenv("CFGTEST_LOG_LEVEL", "warn")

	var cfg testConfig
	if err := Load(context.Background(), &cfg, NewEnvSource(EnvOptions{Prefix: "CFGTEST_"})); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
}

func TestNewValidator_WithOptions(t *testing.T) {
	called := false
	v := NewValidator(func(*validator.Validate) { called = true })
	if v == nil {
		t.Fatal("NewValidator() should return non-nil validator")
	}
	if !called {
		t.Error("validator option should be called")
	}
}
