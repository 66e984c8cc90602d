package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "SERVER_PORT")
	unsetEnvWithCleanup(t, "PORT")
	unsetEnvWithCleanup(t, "STATEMENT_CACHE_TTL_MS")
	unsetEnvWithCleanup(t, "ACCOUNT_SEED")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.ServerPort)
	}
	if cfg.StatementCacheTTLMs != 1000 {
		t.Fatalf("expected default cache TTL 1000ms, got %d", cfg.StatementCacheTTLMs)
	}
	if cfg.StatementCachePrefix != "ledger:statement" {
		t.Fatalf("expected default cache prefix, got %q", cfg.StatementCachePrefix)
	}
	if cfg.AccountSeed == "" {
		t.Fatal("expected a non-empty default account seed")
	}
}

func TestLoadConfig_PortOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8081")
	setEnvWithCleanup(t, "PORT", "9090")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Fatalf("expected PORT to override SERVER_PORT, got %q", cfg.ServerPort)
	}
}

func TestParseAccountSeed(t *testing.T) {
	tests := []struct {
		name    string
		seed    string
		want    []AccountSeedEntry
		wantErr bool
	}{
		{
			name: "parses multiple entries",
			seed: "1:100000, 2:80000",
			want: []AccountSeedEntry{{ID: 1, CreditLimit: 100000}, {ID: 2, CreditLimit: 80000}},
		},
		{
			name: "skips empty segments",
			seed: "1:10,,2:20,",
			want: []AccountSeedEntry{{ID: 1, CreditLimit: 10}, {ID: 2, CreditLimit: 20}},
		},
		{
			name:    "rejects missing limit",
			seed:    "1",
			wantErr: true,
		},
		{
			name:    "rejects non-numeric id",
			seed:    "a:10",
			wantErr: true,
		},
		{
			name:    "rejects negative limit",
			seed:    "1:-5",
			wantErr: true,
		},
		{
			name:    "rejects empty seed",
			seed:    " , ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAccountSeed(tt.seed)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d entries, got %d", len(tt.want), len(got))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("entry %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			os.Setenv(key, prev)
		} else {
			os.Unsetenv(key)
		}
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unsetenv %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			os.Setenv(key, prev)
		}
	})
}
