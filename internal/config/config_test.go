package config

import (
	"testing"
	"time"
)

func TestDefaultSyncConfig(t *testing.T) {
	cfg := DefaultSyncConfig()

	if cfg.TTL != 6*time.Hour {
		t.Errorf("Expected TTL 6h, got %v", cfg.TTL)
	}
	if cfg.BatchSize != 4 {
		t.Errorf("Expected batch size 4, got %d", cfg.BatchSize)
	}
	if cfg.BatchCooldown != 50*time.Millisecond {
		t.Errorf("Expected cooldown 50ms, got %v", cfg.BatchCooldown)
	}
	if cfg.IndexKey == cfg.MetadataKey {
		t.Error("Index and metadata keys must differ")
	}
}

func TestValidate(t *testing.T) {
	valid := Config{TMDBAPIKey: "key", Sync: DefaultSyncConfig()}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	missingKey := valid
	missingKey.TMDBAPIKey = ""
	if err := missingKey.Validate(); err == nil {
		t.Error("Expected error for missing TMDB key")
	}

	cloudNoAccount := valid
	cloudNoAccount.CloudDSN = "cloud.db"
	if err := cloudNoAccount.Validate(); err == nil {
		t.Error("Expected error for cloud DSN without account")
	}

	badBatch := valid
	badBatch.Sync.BatchSize = 0
	if err := badBatch.Validate(); err == nil {
		t.Error("Expected error for zero batch size")
	}
}
