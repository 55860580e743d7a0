package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".tracecov"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for tracecov settings.
const envPrefix = "TRACECOV"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	bindErr := bindTelemetryEnv(viperCfg)
	if bindErr != nil {
		return nil, bindErr
	}

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or env override exists.
func Default() *Config {
	return &Config{
		Trace: TraceConfig{
			Remap:     DefaultTraceRemap,
			ChunkSize: DefaultTraceChunkSize,
		},
		Report: ReportConfig{
			Format:     DefaultReportFormat,
			Targets:    []string{},
			FailUnder:  DefaultReportFailUnder,
			Lines:      DefaultReportLines,
			SkipVendor: DefaultReportSkipVendor,
		},
		Logging: LoggingConfig{
			Level: DefaultLoggingLevel,
			JSON:  DefaultLoggingJSON,
		},
		Serve: ServeConfig{Addr: DefaultServeAddr},
		Telemetry: TelemetryConfig{
			Endpoint:    DefaultTelemetryEndpoint,
			Headers:     DefaultTelemetryHeaders,
			Insecure:    DefaultTelemetryInsecure,
			Environment: DefaultTelemetryEnvironment,
			SampleRatio: DefaultTelemetrySampleRatio,
		},
	}
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("trace.remap", DefaultTraceRemap)
	viperCfg.SetDefault("trace.chunk_size", DefaultTraceChunkSize)

	viperCfg.SetDefault("report.format", DefaultReportFormat)
	viperCfg.SetDefault("report.targets", []string{})
	viperCfg.SetDefault("report.fail_under", DefaultReportFailUnder)
	viperCfg.SetDefault("report.lines", DefaultReportLines)
	viperCfg.SetDefault("report.skip_vendor", DefaultReportSkipVendor)

	viperCfg.SetDefault("logging.level", DefaultLoggingLevel)
	viperCfg.SetDefault("logging.json", DefaultLoggingJSON)

	viperCfg.SetDefault("serve.addr", DefaultServeAddr)

	viperCfg.SetDefault("telemetry.endpoint", DefaultTelemetryEndpoint)
	viperCfg.SetDefault("telemetry.headers", DefaultTelemetryHeaders)
	viperCfg.SetDefault("telemetry.insecure", DefaultTelemetryInsecure)
	viperCfg.SetDefault("telemetry.environment", DefaultTelemetryEnvironment)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultTelemetrySampleRatio)
}

// otlpEnvFallbacks binds telemetry keys to the tracecov variable first and the
// standard OTLP exporter variable second.
var otlpEnvFallbacks = map[string]string{
	"telemetry.endpoint": "OTEL_EXPORTER_OTLP_ENDPOINT",
	"telemetry.headers":  "OTEL_EXPORTER_OTLP_HEADERS",
	"telemetry.insecure": "OTEL_EXPORTER_OTLP_INSECURE",
}

func bindTelemetryEnv(viperCfg *viper.Viper) error {
	for key, standard := range otlpEnvFallbacks {
		own := envPrefix + envKeySeparator + strings.ToUpper(strings.ReplaceAll(key, ".", envKeySeparator))

		err := viperCfg.BindEnv(key, own, standard)
		if err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	return nil
}
