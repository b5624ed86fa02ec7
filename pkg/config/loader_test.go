package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadConfigLayering(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
server:
  port: "8080"
pipeline:
  reply_style: formal
  retry_attempts: 3
`)
	writeFile(t, dir, "test.yaml", `
pipeline:
  reply_style: friendly
`)

	cfg, err := LoadConfig("test", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pipeline, ok := cfg["pipeline"].(map[string]interface{})
	if !ok {
		t.Fatalf("pipeline section missing: %+v", cfg)
	}
	if pipeline["reply_style"] != "friendly" {
		t.Errorf("env layer should override base: %v", pipeline["reply_style"])
	}
	if pipeline["retry_attempts"] != 3 {
		t.Errorf("base value should survive merge: %v", pipeline["retry_attempts"])
	}

	server, _ := cfg["server"].(map[string]interface{})
	if server["port"] != "8080" {
		t.Errorf("unexpected server port: %v", server["port"])
	}
}

func TestLoadConfigSecretsSubstitution(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
auth:
  secret: ${JWT_SECRET}
`)
	writeFile(t, dir, "secrets.env", "JWT_SECRET=s3cret\n")

	cfg, err := LoadConfig("local", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	auth, _ := cfg["auth"].(map[string]interface{})
	if auth["secret"] != "s3cret" {
		t.Errorf("secret not substituted: %v", auth["secret"])
	}
}

func TestLoadConfigMissingEnvFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
server:
  port: "9000"
`)

	cfg, err := LoadConfig("staging", dir)
	if err != nil {
		t.Fatalf("missing env file should not fail: %v", err)
	}

	server, _ := cfg["server"].(map[string]interface{})
	if server["port"] != "9000" {
		t.Errorf("unexpected server port: %v", server["port"])
	}
}

func TestOverridePipelineFromEnv(t *testing.T) {
	t.Setenv("PIPELINE_REPLY_STYLE", "friendly")
	t.Setenv("PIPELINE_RETRY_ATTEMPTS", "5")
	t.Setenv("PIPELINE_AUTO_SEND", "false")

	cfg := PipelineConfig{ReplyStyle: "formal", RetryAttempts: 3, AutoSend: true}
	OverridePipelineFromEnv(&cfg)

	if cfg.ReplyStyle != "friendly" {
		t.Errorf("reply style not overridden: %s", cfg.ReplyStyle)
	}
	if cfg.RetryAttempts != 5 {
		t.Errorf("retry attempts not overridden: %d", cfg.RetryAttempts)
	}
	if cfg.AutoSend {
		t.Error("auto_send not overridden")
	}
}

func TestOverridePipelineIgnoresGarbage(t *testing.T) {
	t.Setenv("PIPELINE_RETRY_ATTEMPTS", "not-a-number")

	cfg := PipelineConfig{RetryAttempts: 3}
	OverridePipelineFromEnv(&cfg)

	if cfg.RetryAttempts != 3 {
		t.Errorf("garbage override should be ignored, got %d", cfg.RetryAttempts)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("SOME_TEST_KEY", "value")
	if GetEnv("SOME_TEST_KEY", "fallback") != "value" {
		t.Error("set variable should win")
	}
	if GetEnv("SOME_MISSING_KEY", "fallback") != "fallback" {
		t.Error("missing variable should fall back")
	}
}
