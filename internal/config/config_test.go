package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("PORT", "")
	t.Setenv("CURRENT_APP_VERSION", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Environment != EnvDevelopment {
		t.Errorf("Environment = %s, want development", cfg.Environment)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %s, want 8080", cfg.Port)
	}
	if cfg.CurrentAppVersion != "0.0.0" {
		t.Errorf("CurrentAppVersion = %s, want 0.0.0", cfg.CurrentAppVersion)
	}
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "sandbox")

	if _, err := Load(); err == nil {
		t.Error("Load() accepted an unknown environment")
	}
}

func TestLoad_ProductionRequirements(t *testing.T) {
	tests := []struct {
		name         string
		projectID    string
		sharedSecret string
		wantErr      bool
	}{
		{"complete", "sonuby-prod", "secret", false},
		{"missing project ID", "", "secret", true},
		{"missing shared secret", "sonuby-prod", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "production")
			t.Setenv("FIREBASE_PROJECT_ID", tt.projectID)
			t.Setenv("METEOBLUE_SHARED_SECRET", tt.sharedSecret)

			_, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvironmentIsValid(t *testing.T) {
	for _, e := range []Environment{EnvProduction, EnvStaging, EnvBeta, EnvDevelopment, EnvTesting} {
		if !e.IsValid() {
			t.Errorf("IsValid(%s) = false", e)
		}
	}
	if Environment("sandbox").IsValid() {
		t.Error("IsValid(sandbox) = true")
	}
}
