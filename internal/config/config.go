package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/example/go-nano-tts/internal/audio"
	"github.com/example/go-nano-tts/internal/segment"
	"github.com/example/go-nano-tts/internal/token"
)

type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"`
	Segmenter SegmenterConfig `mapstructure:"segmenter"`
	Output    OutputConfig    `mapstructure:"output"`
	Log       LogConfig       `mapstructure:"log"`
}

type EngineConfig struct {
	Name    string `mapstructure:"name"`
	Voice   string `mapstructure:"voice"`
	DelayMS int    `mapstructure:"delay_ms"`
}

type SegmenterConfig struct {
	MinTokens      int    `mapstructure:"min_tokens"`
	MaxTokens      int    `mapstructure:"max_tokens"`
	IdleTimeoutMS  int    `mapstructure:"idle_timeout_ms"`
	Tokenizer      string `mapstructure:"tokenizer"`
	TokenizerModel string `mapstructure:"tokenizer_model"`
}

type OutputConfig struct {
	SampleRate  int `mapstructure:"sample_rate"`
	Channels    int `mapstructure:"channels"`
	SampleWidth int `mapstructure:"sample_width"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	seg := segment.DefaultConfig()
	out := audio.DefaultSpec()
	return Config{
		Engine: EngineConfig{
			Name: "dummy",
		},
		Segmenter: SegmenterConfig{
			MinTokens:     seg.MinTokens,
			MaxTokens:     seg.MaxTokens,
			IdleTimeoutMS: int(seg.IdleTimeout / time.Millisecond),
			Tokenizer:     TokenizerWord,
		},
		Output: OutputConfig{
			SampleRate:  out.SampleRate,
			Channels:    out.Channels,
			SampleWidth: out.SampleWidth,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("engine-name", defaults.Engine.Name, "Synthesis backend name")
	fs.String("engine-voice", defaults.Engine.Voice, "Voice identifier passed to the backend")
	fs.Int("engine-delay-ms", defaults.Engine.DelayMS, "Artificial per-segment delay (dummy backend)")
	fs.Int("segmenter-min-tokens", defaults.Segmenter.MinTokens, "Minimum tokens before a boundary may fire")
	fs.Int("segmenter-max-tokens", defaults.Segmenter.MaxTokens, "Token ceiling that forces a boundary")
	fs.Int("segmenter-idle-timeout-ms", defaults.Segmenter.IdleTimeoutMS, "Idle flush timeout in ms (0 disables)")
	fs.String("segmenter-tokenizer", defaults.Segmenter.Tokenizer, "Token counter: word, tiktoken or sentencepiece")
	fs.String("segmenter-tokenizer-model", defaults.Segmenter.TokenizerModel, "Tiktoken encoding name or sentencepiece model path")
	fs.String("tokenizer", defaults.Segmenter.Tokenizer, "Token counter (alias for --segmenter-tokenizer)")
	fs.Int("output-sample-rate", defaults.Output.SampleRate, "Output sample rate in Hz")
	fs.Int("output-channels", defaults.Output.Channels, "Output channel count")
	fs.Int("output-sample-width", defaults.Output.SampleWidth, "Output sample width in bits")
	fs.String("log-level", defaults.Log.Level, "Log level: debug, info, warn or error")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("NANOTTS")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("nanotts")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

// SegmentConfig translates the millisecond wire fields into segmenter
// thresholds.
func (c Config) SegmentConfig() segment.Config {
	return segment.Config{
		MinTokens:   c.Segmenter.MinTokens,
		MaxTokens:   c.Segmenter.MaxTokens,
		IdleTimeout: time.Duration(c.Segmenter.IdleTimeoutMS) * time.Millisecond,
	}
}

// OutputSpec builds the delivery spec. The CLI only emits PCM.
func (c Config) OutputSpec() audio.Spec {
	return audio.Spec{
		Codec:       audio.CodecPCM,
		SampleRate:  c.Output.SampleRate,
		Channels:    c.Output.Channels,
		SampleWidth: c.Output.SampleWidth,
	}
}

// EngineOptions collects backend options for the registry factory.
func (c Config) EngineOptions() map[string]any {
	opts := map[string]any{}
	if c.Engine.Voice != "" {
		opts["voice"] = c.Engine.Voice
	}
	if c.Engine.DelayMS > 0 {
		opts["delay_ms"] = c.Engine.DelayMS
	}
	return opts
}

// BuildCounter instantiates the configured token counter.
func (c Config) BuildCounter() (token.Counter, error) {
	name, err := NormalizeTokenizer(c.Segmenter.Tokenizer)
	if err != nil {
		return nil, err
	}
	switch name {
	case TokenizerWord:
		return token.WordCounter{}, nil
	case TokenizerTiktoken:
		encoding := c.Segmenter.TokenizerModel
		if encoding == "" {
			encoding = token.DefaultEncoding
		}
		return token.NewTiktokenCounter(encoding), nil
	case TokenizerSentencePiece:
		return token.NewSentencePieceCounter(c.Segmenter.TokenizerModel)
	default:
		return nil, fmt.Errorf("unreachable tokenizer %q", name)
	}
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("engine.name", c.Engine.Name)
	v.SetDefault("engine.voice", c.Engine.Voice)
	v.SetDefault("engine.delay_ms", c.Engine.DelayMS)
	v.SetDefault("segmenter.min_tokens", c.Segmenter.MinTokens)
	v.SetDefault("segmenter.max_tokens", c.Segmenter.MaxTokens)
	v.SetDefault("segmenter.idle_timeout_ms", c.Segmenter.IdleTimeoutMS)
	v.SetDefault("segmenter.tokenizer", c.Segmenter.Tokenizer)
	v.SetDefault("segmenter.tokenizer_model", c.Segmenter.TokenizerModel)
	v.SetDefault("output.sample_rate", c.Output.SampleRate)
	v.SetDefault("output.channels", c.Output.Channels)
	v.SetDefault("output.sample_width", c.Output.SampleWidth)
	v.SetDefault("log.level", c.Log.Level)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("engine.name", "engine-name")
	v.RegisterAlias("engine.voice", "engine-voice")
	v.RegisterAlias("engine.delay_ms", "engine-delay-ms")
	v.RegisterAlias("segmenter.min_tokens", "segmenter-min-tokens")
	v.RegisterAlias("segmenter.max_tokens", "segmenter-max-tokens")
	v.RegisterAlias("segmenter.idle_timeout_ms", "segmenter-idle-timeout-ms")
	v.RegisterAlias("segmenter.tokenizer", "segmenter-tokenizer")
	v.RegisterAlias("segmenter.tokenizer", "tokenizer")
	v.RegisterAlias("segmenter.tokenizer_model", "segmenter-tokenizer-model")
	v.RegisterAlias("output.sample_rate", "output-sample-rate")
	v.RegisterAlias("output.channels", "output-channels")
	v.RegisterAlias("output.sample_width", "output-sample-width")
	v.RegisterAlias("log.level", "log-level")
}
