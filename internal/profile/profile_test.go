package profile

import (
	"testing"
)

func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{
			name:    "sqlite with defaults",
			profile: Profile{Mode: "dev", Driver: "sqlite", Data: "."},
			wantErr: false,
		},
		{
			name:    "unknown driver",
			profile: Profile{Mode: "dev", Driver: "mysql", Data: "."},
			wantErr: true,
		},
		{
			name:    "postgres without dsn",
			profile: Profile{Mode: "dev", Driver: "postgres", Data: "."},
			wantErr: true,
		},
		{
			name:    "postgres with dsn",
			profile: Profile{Mode: "dev", Driver: "postgres", Data: ".", DSN: "postgres://localhost/assignflow"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProfile_ValidateDefaults(t *testing.T) {
	p := Profile{Mode: "dev", Driver: "sqlite", Data: "."}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if p.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want 30", p.RetentionDays)
	}
	if p.PurgeSchedule == "" {
		t.Error("PurgeSchedule not defaulted")
	}
	if p.NotifyRatePerSec <= 0 {
		t.Error("NotifyRatePerSec not defaulted")
	}
	if p.DSN == "" {
		t.Error("sqlite DSN not defaulted")
	}
}
