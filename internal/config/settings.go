package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// BackendConfig points at the opaque services the orchestrator talks to.
type BackendConfig struct {
	GenerateURL   string        `mapstructure:"generate_url"`
	ClassifyURL   string        `mapstructure:"classify_url"`
	NarrateURL    string        `mapstructure:"narrate_url"`
	SheetURL      string        `mapstructure:"sheet_url"`
	STTURL        string        `mapstructure:"stt_url"`
	TTSURL        string        `mapstructure:"tts_url"`
	GenTimeout    time.Duration `mapstructure:"gen_timeout"`
	NarrateWindow time.Duration `mapstructure:"narrate_window"`
}

type VoiceConfig struct {
	SampleRate       int32         `mapstructure:"sample_rate"`
	Channels         int16         `mapstructure:"channels"`
	SilenceThreshold float64       `mapstructure:"silence_threshold"` // mean abs amplitude
	SilenceWindow    time.Duration `mapstructure:"silence_window"`    // auto-stop after this much silence
	MinRecording     time.Duration `mapstructure:"min_recording"`     // and at least this much total audio
	BufferBytes      int           `mapstructure:"buffer_bytes"`
}

type ConversationConfig struct {
	MaxTurns      int           `mapstructure:"max_turns"`
	GraceWindow   time.Duration `mapstructure:"grace_window"`
	ThinkingFloor time.Duration `mapstructure:"thinking_floor"`
	SegmentGap    time.Duration `mapstructure:"segment_gap"`
}

type Settings struct {
	Server       ServerConfig       `mapstructure:"server"`
	Backends     BackendConfig      `mapstructure:"backends"`
	Voice        VoiceConfig        `mapstructure:"voice"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Env          string             `mapstructure:"env"`
	Debug        bool               `mapstructure:"debug" default:"false"`
}

func Load() (*Settings, error) {
	viper.SetConfigName("config_" + genEnv())
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// no config file: run on defaults
	}

	var settings Settings
	if err := viper.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &settings, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("backends.gen_timeout", 30*time.Second)
	viper.SetDefault("backends.narrate_window", 2500*time.Millisecond)
	viper.SetDefault("voice.sample_rate", 16000)
	viper.SetDefault("voice.channels", 1)
	viper.SetDefault("voice.silence_threshold", 500.0)
	viper.SetDefault("voice.silence_window", 3*time.Second)
	viper.SetDefault("voice.min_recording", time.Second)
	viper.SetDefault("voice.buffer_bytes", 1024*1024)
	viper.SetDefault("conversation.max_turns", 6)
	viper.SetDefault("conversation.grace_window", 8*time.Second)
	viper.SetDefault("conversation.thinking_floor", 1500*time.Millisecond)
	viper.SetDefault("conversation.segment_gap", 500*time.Millisecond)
}

func genEnv() string {
	env := viper.GetString("ENV")
	if env == "" {
		return "dev"
	}
	return env
}
