package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Import.DefaultSRID != 4326 {
		t.Errorf("Import.DefaultSRID = %d, want %d", cfg.Import.DefaultSRID, 4326)
	}
	if cfg.Import.DefaultPort != 5432 {
		t.Errorf("Import.DefaultPort = %d, want %d", cfg.Import.DefaultPort, 5432)
	}
	if cfg.Database.Schema != "public" {
		t.Errorf("Database.Schema = %q, want %q", cfg.Database.Schema, "public")
	}
	if !cfg.Tools.CreateIndex {
		t.Error("Tools.CreateIndex = false, want true")
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("IMPORT_DEFAULT_PORT", "5434")
	t.Setenv("IMPORT_TARGET_PLATFORM", "windows")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PSQL_ON_ERROR_STOP", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Import.DefaultPort != 5434 {
		t.Errorf("Import.DefaultPort = %d, want %d", cfg.Import.DefaultPort, 5434)
	}
	if cfg.Import.TargetPlatform != "windows" {
		t.Errorf("Import.TargetPlatform = %q, want %q", cfg.Import.TargetPlatform, "windows")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Tools.OnErrorStop {
		t.Error("Tools.OnErrorStop = true, want false")
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	t.Setenv("DB_SSLMODE", "")
	t.Setenv("PGSSLMODE", "require")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.SSLMode != "require" {
		t.Errorf("Database.SSLMode = %q, want %q", cfg.Database.SSLMode, "require")
	}
}

func TestLoad_InvalidInteger(t *testing.T) {
	t.Setenv("IMPORT_DEFAULT_SRID", "wgs84")

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for non-numeric IMPORT_DEFAULT_SRID")
	}
	if !strings.Contains(err.Error(), "IMPORT_DEFAULT_SRID") {
		t.Errorf("error should mention IMPORT_DEFAULT_SRID: %v", err)
	}
}

func TestLoadStruct_Required(t *testing.T) {
	var target struct {
		Name string `env:"NAME" required:"true"`
	}
	err := loadStruct(reflect.ValueOf(&target).Elem(), func(string) string { return "" })
	if err == nil {
		t.Fatal("loadStruct() expected error for missing required value")
	}
}

func TestLoad_Duration(t *testing.T) {
	t.Setenv("DB_CONNECT_TIMEOUT", "45s")
	t.Setenv("IMPORT_TIMEOUT", "1m30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.ConnectTimeout != 45*time.Second {
		t.Errorf("Database.ConnectTimeout = %v, want %v", cfg.Database.ConnectTimeout, 45*time.Second)
	}
	if cfg.Import.Timeout != 90*time.Second {
		t.Errorf("Import.Timeout = %v, want %v", cfg.Import.Timeout, 90*time.Second)
	}
}

func TestLoad_CommaSeparatedSlice(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.0/12 , 192.168.0.0/16")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	expected := []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}
	if len(cfg.Security.TrustedProxies) != len(expected) {
		t.Fatalf("TrustedProxies length = %d, want %d", len(cfg.Security.TrustedProxies), len(expected))
	}
	for i, v := range expected {
		if cfg.Security.TrustedProxies[i] != v {
			t.Errorf("TrustedProxies[%d] = %q, want %q", i, cfg.Security.TrustedProxies[i], v)
		}
	}
}

func TestDefaults_IgnoresEnvironment(t *testing.T) {
	t.Setenv("IMPORT_DEFAULT_SRID", "3857")

	cfg := Defaults()
	if cfg.Import.DefaultSRID != 4326 {
		t.Errorf("Defaults().Import.DefaultSRID = %d, want %d", cfg.Import.DefaultSRID, 4326)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults() should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"invalid server port", func(c *Config) { c.Server.Port = 99999 }, "SERVER_PORT"},
		{"invalid default port", func(c *Config) { c.Import.DefaultPort = 0 }, "IMPORT_DEFAULT_PORT"},
		{"negative srid", func(c *Config) { c.Import.DefaultSRID = -1 }, "IMPORT_DEFAULT_SRID"},
		{"unknown platform", func(c *Config) { c.Import.TargetPlatform = "plan9" }, "IMPORT_TARGET_PLATFORM"},
		{"bad sslmode", func(c *Config) { c.Database.SSLMode = "sometimes" }, "DB_SSLMODE"},
		{"empty psql path", func(c *Config) { c.Tools.PsqlPath = "" }, "PSQL_PATH"},
		{"zero concurrency", func(c *Config) { c.Import.MaxConcurrent = 0 }, "IMPORT_MAX_CONCURRENT"},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"api key required without keys", func(c *Config) { c.Security.RequireAPIKey = true }, "API_KEYS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() expected error mentioning %s", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error should mention %s: %v", tt.wantErr, err)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"", 8080, ":8080"},
		{"0.0.0.0", 8080, "0.0.0.0:8080"},
		{"127.0.0.1", 3000, "127.0.0.1:3000"},
		{"localhost", 443, "localhost:443"},
	}

	for _, tt := range tests {
		cfg := &ServerConfig{Host: tt.host, Port: tt.port}
		got := cfg.Addr()
		if got != tt.want {
			t.Errorf("Addr() with host=%q, port=%d = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestConfigString_MasksAPIKeys(t *testing.T) {
	cfg := Defaults()
	cfg.Security.APIKeys = []string{"supersecret"}

	str := cfg.String()
	if strings.Contains(str, "supersecret") {
		t.Error("String() should mask API keys")
	}
	if !strings.Contains(str, "MASKED") {
		t.Error("String() should contain MASKED placeholder")
	}
}
