package shared

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("GF_STRING", "value")
	t.Setenv("GF_INT", "42")
	t.Setenv("GF_BAD_INT", "forty-two")
	t.Setenv("GF_FLOAT", "62.5")
	t.Setenv("GF_BOOL", "true")
	t.Setenv("GF_DURATION", "3s")
	t.Setenv("GF_LIST", " a, b ,,c ")

	if got := GetEnv("GF_STRING", "x"); got != "value" {
		t.Errorf("GetEnv = %q", got)
	}
	if got := GetEnv("GF_UNSET", "x"); got != "x" {
		t.Errorf("GetEnv default = %q", got)
	}
	if got := GetIntEnv("GF_INT", 1); got != 42 {
		t.Errorf("GetIntEnv = %d", got)
	}
	if got := GetIntEnv("GF_BAD_INT", 7); got != 7 {
		t.Errorf("GetIntEnv should fall back on parse errors, got %d", got)
	}
	if got := GetFloatEnv("GF_FLOAT", 70); got != 62.5 {
		t.Errorf("GetFloatEnv = %v", got)
	}
	if got := GetBoolEnv("GF_BOOL", false); !got {
		t.Error("GetBoolEnv = false")
	}
	if got := GetDurationEnv("GF_DURATION", time.Second); got != 3*time.Second {
		t.Errorf("GetDurationEnv = %v", got)
	}
	if got := GetStringSliceEnv("GF_LIST", nil); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("GetStringSliceEnv = %v", got)
	}
}

func TestRequireEnv(t *testing.T) {
	t.Setenv("GF_SET", "x")
	t.Setenv("GF_BLANK", "  ")

	if err := RequireEnv("GF_SET"); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	err := RequireEnv("GF_SET", "GF_BLANK", "GF_NEVER_SET")
	if err == nil {
		t.Fatal("Expected error for missing variables")
	}
	if got := err.Error(); got != "missing required environment variables: GF_BLANK, GF_NEVER_SET" {
		t.Errorf("Unexpected error %q", got)
	}
}

func TestLoadServiceConfig(t *testing.T) {
	t.Run("Defaults without Mongo", func(t *testing.T) {
		t.Setenv("MONGO_URI", "")
		config, err := LoadServiceConfig("gradectl", false)
		if err != nil {
			t.Fatalf("LoadServiceConfig failed: %v", err)
		}
		if config.Grading.LowScoreThreshold != DefaultLowScoreThreshold {
			t.Errorf("Expected threshold %v, got %v", DefaultLowScoreThreshold, config.Grading.LowScoreThreshold)
		}
		if config.Grading.SchoolTimezone != DefaultSchoolTimezone {
			t.Errorf("Unexpected timezone %q", config.Grading.SchoolTimezone)
		}
		if config.MongoDB.Database != DefaultDatabaseName {
			t.Errorf("Unexpected database %q", config.MongoDB.Database)
		}
		if config.RequestTimeout != DefaultRequestTimeout {
			t.Errorf("Unexpected timeout %v", config.RequestTimeout)
		}
	})

	t.Run("Mongo required", func(t *testing.T) {
		t.Setenv("MONGO_URI", "")
		if _, err := LoadServiceConfig("gateway", true); err == nil {
			t.Error("Expected error when MONGO_URI is missing")
		}
	})

	t.Run("Overrides", func(t *testing.T) {
		t.Setenv("MONGO_URI", "mongodb://localhost:27017")
		t.Setenv("LOW_SCORE_THRESHOLD", "65")
		t.Setenv("SCHOOL_TIMEZONE", "UTC")
		config, err := LoadServiceConfig("gateway", true)
		if err != nil {
			t.Fatalf("LoadServiceConfig failed: %v", err)
		}
		if config.Grading.LowScoreThreshold != 65 {
			t.Errorf("Expected threshold 65, got %v", config.Grading.LowScoreThreshold)
		}
		loc, err := config.Grading.LoadLocation()
		if err != nil || loc.String() != "UTC" {
			t.Errorf("Expected UTC location, got %v (%v)", loc, err)
		}
	})
}

func TestValidateGatewayConfig(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	config, err := LoadGatewayConfig()
	if err != nil {
		t.Fatalf("LoadGatewayConfig failed: %v", err)
	}
	config.Grading.SchoolTimezone = "UTC"
	if err := ValidateGatewayConfig(config); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	bad := *config
	bad.HealthPort = bad.HTTPPort
	if err := ValidateGatewayConfig(&bad); err == nil {
		t.Error("Expected error for shared ports")
	}

	bad = *config
	bad.Grading.LowScoreThreshold = 140
	if err := ValidateGatewayConfig(&bad); err == nil {
		t.Error("Expected error for threshold above 100")
	}

	bad = *config
	bad.Grading.SchoolTimezone = "Mars/Olympus_Mons"
	if err := ValidateGatewayConfig(&bad); err == nil {
		t.Error("Expected error for unknown timezone")
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("GF_FROM_DOTENV=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GF_FROM_DOTENV", "")
	os.Unsetenv("GF_FROM_DOTENV")

	if err := LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if got := os.Getenv("GF_FROM_DOTENV"); got != "loaded" {
		t.Errorf("Expected value from .env, got %q", got)
	}
	if err := LoadEnv(filepath.Join(dir, "missing.env")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestGetFloatMap(t *testing.T) {
	got, err := GetFloatMap(map[string]interface{}{"Assessment": 0.5, "Daily": int32(1)})
	if err != nil {
		t.Fatalf("GetFloatMap failed: %v", err)
	}
	if got["Assessment"] != 0.5 || got["Daily"] != 1 {
		t.Errorf("Unexpected map %v", got)
	}
	if _, err := GetFloatMap(map[string]interface{}{"Daily": "half"}); err == nil {
		t.Error("Expected error for non-numeric weight")
	}
	if _, err := GetFloatMap("nope"); err == nil {
		t.Error("Expected error for non-document value")
	}
}
