package model

import (
	"time"

	"github.com/google/uuid"
)

// CryType is the detected reason a baby is crying
type CryType string

const (
	CryHunger     CryType = "Hunger"
	CrySleep      CryType = "Sleep"
	CryDiscomfort CryType = "Discomfort"
	CryGas        CryType = "Gas"
	CryBurp       CryType = "Burp"
	CryUnknown    CryType = "Unknown"
)

// CryTypes lists every accepted detected_type value
var CryTypes = []CryType{CryHunger, CrySleep, CryDiscomfort, CryGas, CryBurp, CryUnknown}

// AdviceKey identifies the caregiving action the client should suggest
type AdviceKey string

const (
	AdviceFeedBaby     AdviceKey = "feed_baby"
	AdviceSleepBaby    AdviceKey = "sleep_baby"
	AdviceCheckDiaper  AdviceKey = "check_diaper"
	AdviceCheckBaby    AdviceKey = "check_baby"
	AdviceBurpBaby     AdviceKey = "burp_baby"
	AdviceMassageTummy AdviceKey = "massage_tummy"
)

// AdviceKeys lists every accepted advice_key value
var AdviceKeys = []AdviceKey{
	AdviceFeedBaby, AdviceSleepBaby, AdviceCheckDiaper,
	AdviceCheckBaby, AdviceBurpBaby, AdviceMassageTummy,
}

// SootheSound identifies an ambient sound the client can play
type SootheSound string

const (
	SoundWhiteNoise   SootheSound = "white_noise"
	SoundShushing     SootheSound = "shushing"
	SoundHeartbeat    SootheSound = "heartbeat"
	SoundLullaby      SootheSound = "lullaby"
	SoundNatureSounds SootheSound = "nature_sounds"
)

// SootheSounds lists every accepted soothe_sound value
var SootheSounds = []SootheSound{SoundWhiteNoise, SoundShushing, SoundHeartbeat, SoundLullaby, SoundNatureSounds}

// CryClassification is the validated result returned to the client
type CryClassification struct {
	DetectedType CryType     `json:"detected_type"`
	Confidence   float64     `json:"confidence"`
	Reasoning    string      `json:"reasoning"`
	AdviceKey    AdviceKey   `json:"advice_key"`
	SootheSound  SootheSound `json:"soothe_sound"`
}

// DefaultSootheSound picks a sound for a cry type when the model did not suggest one
func DefaultSootheSound(t CryType) SootheSound {
	switch t {
	case CrySleep:
		return SoundWhiteNoise
	case CryGas:
		return SoundHeartbeat
	case CryDiscomfort, CryUnknown:
		return SoundNatureSounds
	default:
		return SoundShushing
	}
}

// Cry is a stored classification record (cries table)
type Cry struct {
	ID          uuid.UUID   `json:"id"`
	UserID      string      `json:"user_id"`
	Type        CryType     `json:"type"`
	Confidence  float64     `json:"confidence"`
	Reasoning   string      `json:"reasoning"`
	AdviceKey   AdviceKey   `json:"advice_key"`
	SootheSound SootheSound `json:"soothe_sound"`
	Transcript  string      `json:"transcript,omitempty"`
	Language    string      `json:"language"`
	IsFallback  bool        `json:"is_fallback"`
	CreatedAt   time.Time   `json:"created_at"`
}

// NewCry builds a cry record from a classification
func NewCry(userID string, c CryClassification, transcript, language string, fallback bool, at time.Time) *Cry {
	return &Cry{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        c.DetectedType,
		Confidence:  c.Confidence,
		Reasoning:   c.Reasoning,
		AdviceKey:   c.AdviceKey,
		SootheSound: c.SootheSound,
		Transcript:  transcript,
		Language:    language,
		IsFallback:  fallback,
		CreatedAt:   at.UTC(),
	}
}
