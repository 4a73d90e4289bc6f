package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Mithilesh-1311/YANTRA/internal/common"
	"github.com/Mithilesh-1311/YANTRA/internal/model"
	"github.com/Mithilesh-1311/YANTRA/internal/sim"
	"github.com/spf13/viper"
)

// Config is the configuration shared by all binaries.
type Config struct {
	Sites      []SiteConfig     `mapstructure:"sites"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	FedAvg     FedAvgConfig     `mapstructure:"fedavg"`
	Collector  CollectorConfig  `mapstructure:"collector"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type SiteConfig struct {
	Id                    string  `mapstructure:"id"`
	Category              string  `mapstructure:"category"`
	PeakSolarKw           float64 `mapstructure:"peak_solar_kw"`
	BatteryCapacityKwh    float64 `mapstructure:"battery_capacity_kwh"`
	BatteryStartKwh       float64 `mapstructure:"battery_start_kwh"`
	ConsumptionMultiplier float64 `mapstructure:"consumption_multiplier"`
}

type SimulationConfig struct {
	TickInterval            time.Duration     `mapstructure:"tick_interval"`
	MaxTicks                int64             `mapstructure:"max_ticks"`
	Seed                    uint64            `mapstructure:"seed"`
	DataDir                 string            `mapstructure:"data_dir"`
	Endpoints               []string          `mapstructure:"endpoints"`
	DeliveryTimeout         time.Duration     `mapstructure:"delivery_timeout"`
	MetricsAddr             string            `mapstructure:"metrics_addr"`
	SpikeWindows            []sim.SpikeWindow `mapstructure:"spike_windows"`
	SpikeDefaultProbability float64           `mapstructure:"spike_default_probability"`
}

type FedAvgConfig struct {
	Store           string        `mapstructure:"store"`
	ModelDir        string        `mapstructure:"model_dir"`
	AuditLog        string        `mapstructure:"audit_log"`
	Interval        time.Duration `mapstructure:"interval"`
	WeightSource    string        `mapstructure:"weight_source"`
	MinParticipants int           `mapstructure:"min_participants"`
	Minio           MinioConfig   `mapstructure:"minio"`
}

type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Secure    bool   `mapstructure:"secure"`
}

type CollectorConfig struct {
	Addr        string `mapstructure:"addr"`
	HistorySize int    `mapstructure:"history_size"`
	NatsUrl     string `mapstructure:"nats_url"`
	NatsSubject string `mapstructure:"nats_subject"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DefaultSites is the reference fleet of five buildings.
func DefaultSites() []SiteConfig {
	return []SiteConfig{
		{Id: "B1", Category: "Residential", PeakSolarKw: 15, BatteryCapacityKwh: 15, BatteryStartKwh: 4, ConsumptionMultiplier: 1.3},
		{Id: "B2", Category: "Residential Large", PeakSolarKw: 10, BatteryCapacityKwh: 15, BatteryStartKwh: 3, ConsumptionMultiplier: 1.4},
		{Id: "B3", Category: "Residential Small", PeakSolarKw: 12, BatteryCapacityKwh: 15, BatteryStartKwh: 3, ConsumptionMultiplier: 1.2},
		{Id: "B4", Category: "Commercial", PeakSolarKw: 8, BatteryCapacityKwh: 20, BatteryStartKwh: 5, ConsumptionMultiplier: 1.8},
		{Id: "B5", Category: "Commercial Large", PeakSolarKw: 20, BatteryCapacityKwh: 18, BatteryStartKwh: 5, ConsumptionMultiplier: 1.7},
	}
}

func setDefaults(v *viper.Viper) {
	sites := make([]map[string]interface{}, 0)
	for _, site := range DefaultSites() {
		sites = append(sites, map[string]interface{}{
			"id":                     site.Id,
			"category":               site.Category,
			"peak_solar_kw":          site.PeakSolarKw,
			"battery_capacity_kwh":   site.BatteryCapacityKwh,
			"battery_start_kwh":      site.BatteryStartKwh,
			"consumption_multiplier": site.ConsumptionMultiplier,
		})
	}
	v.SetDefault("sites", sites)

	windows := make([]map[string]interface{}, 0)
	for _, window := range sim.DefaultSpikeWindows() {
		windows = append(windows, map[string]interface{}{
			"from_hour":   window.FromHour,
			"to_hour":     window.ToHour,
			"probability": window.Probability,
		})
	}

	v.SetDefault("simulation.tick_interval", time.Second)
	v.SetDefault("simulation.max_ticks", 0)
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.data_dir", "data")
	v.SetDefault("simulation.endpoints", []string{"http://127.0.0.1:5000/update"})
	v.SetDefault("simulation.delivery_timeout", time.Second)
	v.SetDefault("simulation.metrics_addr", "")
	v.SetDefault("simulation.spike_windows", windows)
	v.SetDefault("simulation.spike_default_probability", sim.DefaultSpikeProbability)

	v.SetDefault("fedavg.store", common.STORE_TYPE_FILE)
	v.SetDefault("fedavg.model_dir", "models")
	v.SetDefault("fedavg.audit_log", "")
	v.SetDefault("fedavg.interval", 0)
	v.SetDefault("fedavg.weight_source", common.WEIGHT_SOURCE_SNAPSHOT)
	v.SetDefault("fedavg.min_participants", common.MIN_PARTICIPANTS)
	v.SetDefault("fedavg.minio.endpoint", "127.0.0.1:9000")
	v.SetDefault("fedavg.minio.access_key", "")
	v.SetDefault("fedavg.minio.secret_key", "")
	v.SetDefault("fedavg.minio.bucket", "yantra-models")
	v.SetDefault("fedavg.minio.secure", false)

	v.SetDefault("collector.addr", ":5000")
	v.SetDefault("collector.history_size", 120)
	v.SetDefault("collector.nats_url", "")
	v.SetDefault("collector.nats_subject", common.DEFAULT_NATS_SUBJECT)

	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.file", "")
}

// Load reads the configuration from path, or from config.yaml in . or
// ./configs when path is empty, then applies YANTRA_* environment
// overrides. A missing default file is not an error; a missing explicit
// path is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix("YANTRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if config.FedAvg.Interval == 0 {
		config.FedAvg.Interval = common.MINUTES_PER_DAY * config.Simulation.TickInterval
	}
	if config.FedAvg.Interval == 0 {
		// ticks run unpaced, fall back to one day at one tick per second
		config.FedAvg.Interval = common.MINUTES_PER_DAY * time.Second
	}
	if config.FedAvg.AuditLog == "" {
		config.FedAvg.AuditLog = filepath.Join(config.FedAvg.ModelDir, common.AUDIT_LOG_FILE_NAME)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (config *Config) Validate() error {
	if len(config.Sites) == 0 {
		return fmt.Errorf("no sites configured")
	}

	seen := make(map[string]bool, len(config.Sites))
	for _, site := range config.Sites {
		if err := site.Validate(); err != nil {
			return err
		}
		if seen[site.Id] {
			return fmt.Errorf("duplicate site id %s", site.Id)
		}
		seen[site.Id] = true
	}

	if config.Simulation.TickInterval < 0 {
		return fmt.Errorf("simulation.tick_interval must not be negative")
	}
	if config.Simulation.DeliveryTimeout <= 0 {
		return fmt.Errorf("simulation.delivery_timeout must be positive")
	}
	if err := config.Tuning().Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}

	switch config.FedAvg.Store {
	case common.STORE_TYPE_FILE:
	case common.STORE_TYPE_MINIO:
		if config.FedAvg.Minio.Endpoint == "" || config.FedAvg.Minio.Bucket == "" {
			return fmt.Errorf("fedavg.minio.endpoint and fedavg.minio.bucket are required for the minio store")
		}
	default:
		return fmt.Errorf("unknown fedavg.store %q", config.FedAvg.Store)
	}

	switch config.FedAvg.WeightSource {
	case common.WEIGHT_SOURCE_SNAPSHOT, common.WEIGHT_SOURCE_TIMESERIES:
	default:
		return fmt.Errorf("unknown fedavg.weight_source %q", config.FedAvg.WeightSource)
	}

	if config.FedAvg.MinParticipants < common.MIN_PARTICIPANTS {
		return fmt.Errorf("fedavg.min_participants must be at least %d", common.MIN_PARTICIPANTS)
	}
	if config.FedAvg.Interval <= 0 {
		return fmt.Errorf("fedavg.interval must be positive")
	}
	if config.Collector.HistorySize < 1 {
		return fmt.Errorf("collector.history_size must be at least 1")
	}

	return nil
}

func (site SiteConfig) Validate() error {
	switch {
	case site.Id == "":
		return fmt.Errorf("site without id")
	case site.Id == common.GLOBAL_SNAPSHOT_NAME:
		return fmt.Errorf("site id %q is reserved", site.Id)
	case strings.ContainsAny(site.Id, "/\\. "):
		return fmt.Errorf("site id %q must not contain path separators, dots or spaces", site.Id)
	case site.BatteryCapacityKwh <= 0:
		return fmt.Errorf("site %s: battery capacity must be positive", site.Id)
	case site.BatteryStartKwh < 0 || site.BatteryStartKwh > site.BatteryCapacityKwh:
		return fmt.Errorf("site %s: start charge %.2f outside [0, %.2f]", site.Id, site.BatteryStartKwh,
			site.BatteryCapacityKwh)
	case site.PeakSolarKw < 0:
		return fmt.Errorf("site %s: peak solar output must not be negative", site.Id)
	case site.ConsumptionMultiplier <= 0:
		return fmt.Errorf("site %s: consumption multiplier must be positive", site.Id)
	}
	return nil
}

func (config *Config) SiteProfiles() []model.SiteProfile {
	profiles := make([]model.SiteProfile, 0, len(config.Sites))
	for _, site := range config.Sites {
		profiles = append(profiles, model.SiteProfile{
			Id:                    site.Id,
			Category:              site.Category,
			PeakSolarKw:           site.PeakSolarKw,
			BatteryCapacityKwh:    site.BatteryCapacityKwh,
			BatteryStartKwh:       site.BatteryStartKwh,
			ConsumptionMultiplier: site.ConsumptionMultiplier,
		})
	}
	return profiles
}

func (config *Config) SiteIds() []string {
	ids := make([]string, 0, len(config.Sites))
	for _, site := range config.Sites {
		ids = append(ids, site.Id)
	}
	return ids
}

func (config *Config) Tuning() sim.Tuning {
	tuning := sim.DefaultTuning()
	tuning.SpikeWindows = config.Simulation.SpikeWindows
	tuning.SpikeDefaultProbability = config.Simulation.SpikeDefaultProbability
	return tuning
}
