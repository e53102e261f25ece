package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeLanguage(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		description string
		hint        string
		want        string
	}{
		{"Empty hint falls back to english", "", "en"},
		{"Plain supported code", "ru", "ru"},
		{"Region suffix is dropped", "ru-RU", "ru"},
		{"Underscore region suffix is dropped", "pt_BR", "pt"},
		{"Case and spaces are ignored", " ES ", "es"},
		{"Unknown code falls back to english", "xx", "en"},
		{"Garbage falls back to english", "<script>", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req.Equal(tt.want, NormalizeLanguage(tt.hint))
		})
	}
}

func TestDefaultSootheSound(t *testing.T) {
	req := require.New(t)
	req.Equal(SoundWhiteNoise, DefaultSootheSound(CrySleep))
	req.Equal(SoundHeartbeat, DefaultSootheSound(CryGas))
	req.Equal(SoundNatureSounds, DefaultSootheSound(CryDiscomfort))
	req.Equal(SoundNatureSounds, DefaultSootheSound(CryUnknown))
	req.Equal(SoundShushing, DefaultSootheSound(CryHunger))
	req.Equal(SoundShushing, DefaultSootheSound(CryBurp))
}

func TestNewAuditLogEntryNullables(t *testing.T) {
	req := require.New(t)

	ok := NewAuditLogEntry("user-1", FunctionAnalyzeCry, 0, 0, "")
	req.Nil(ok.TokenUsage)
	req.Nil(ok.Error)

	failed := NewAuditLogEntry("user-1", FunctionAnalyzeCry, 0, 42, "boom")
	req.NotNil(failed.TokenUsage)
	req.Equal(42, *failed.TokenUsage)
	req.NotNil(failed.Error)
	req.Equal("boom", *failed.Error)
}
