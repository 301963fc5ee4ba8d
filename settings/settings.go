/*
Package settings controls reading configuration from environment and assigning defaults
*/
package settings

import (
	"log" // cannot use zerolog until log options are initialised
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// environment variable prefix, nesting delimited by double underscore
// e.g. PD_KAFKA__EVENT_TOPIC maps to kafka.event_topic
const envPrefix = "PD_"

var Settings *PDSettings
var Kafka *PDKafka
var Cache *PDCache
var Pipeline *PDPipeline
var Database *PDDatabase

type PDKafka struct {
	// Kafka bootstrap server list
	Endpoint string `koanf:"endpoint"`
	// topic holding raw analytics events
	EventTopic string `koanf:"event_topic"`
	// consumer group shared by all ingestion workers
	ConsumerGroup string `koanf:"consumer_group"`
	// 'earliest' or 'latest'
	Offset string `koanf:"offset"`
	// export sarama's internal go-metrics registry to prometheus
	ExtendedMetrics bool `koanf:"extended_metrics"`
}

type PDCache struct {
	// valid backends: lookup, bigcache
	Backend string `koanf:"backend"`
	// bytes to allocate for the lookup backend
	LookupBytes int64 `koanf:"lookup_bytes"`
	// size in MB of the bigcache backend
	BigcacheSizeMb int `koanf:"bigcache_size_mb"`
	// number of bigcache shards, concurrency vs max entry size
	BigcacheShards int `koanf:"bigcache_shards"`
	// max TimeToLive for bigcache entries, in seconds
	BigcacheTtlSeconds int64 `koanf:"bigcache_ttl_seconds"`
}

type PDPipeline struct {
	// number of parallel ingestion workers
	WorkerCount int `koanf:"worker_count"`
	// target number of updates per issued batch
	BatchSize int `koanf:"batch_size"`
	// handoff channel capacity is batch_size * slots_per_worker
	SlotsPerWorker int `koanf:"slots_per_worker"`
	// ceiling on in-flight downstream write transactions
	MaxConcurrentTransactions int `koanf:"max_concurrent_transactions"`
	// an event producing more updates than this contributes none at all
	SkipThreshold int `koanf:"skip_threshold"`
	// local compaction set size that forces a flush
	CompactionBatchSize int `koanf:"compaction_batch_size"`
	// seconds a batch may accumulate before a small batch is forced
	MaxIssuePeriodSeconds int64 `koanf:"max_issue_period_seconds"`
}

type PDDatabase struct {
	// Postgres connection URL for the definitions store
	Url string `koanf:"url"`
	// pool ceiling, should be >= max_concurrent_transactions
	MaxConns int32 `koanf:"max_conns"`
}

type PDSettings struct {
	// restapi server will listen for connections from this address
	ListenAddr string `koanf:"listen_addr"`
	// when set, logs are additionally written to rotating files in this folder
	LogPath string `koanf:"log_path"`
	// zerolog level: trace, debug, info, warn, error
	LogLevel string     `koanf:"log_level"`
	Kafka    PDKafka    `koanf:"kafka"`
	Cache    PDCache    `koanf:"cache"`
	Pipeline PDPipeline `koanf:"pipeline"`
	Database PDDatabase `koanf:"database"`
}

var defaults = PDSettings{
	ListenAddr: ":8090",
	LogPath:    "",
	LogLevel:   "info",
	Kafka: PDKafka{
		Endpoint:        "",
		EventTopic:      "events_plugin_ingestion",
		ConsumerGroup:   "property-definitions",
		Offset:          "latest",
		ExtendedMetrics: false,
	},
	Cache: PDCache{
		Backend:            "lookup",
		LookupBytes:        32 * 1024 * 1024,
		BigcacheSizeMb:     256,
		BigcacheShards:     32,
		BigcacheTtlSeconds: 900,
	},
	Pipeline: PDPipeline{
		WorkerCount:               4,
		BatchSize:                 1000,
		SlotsPerWorker:            10,
		MaxConcurrentTransactions: 10,
		SkipThreshold:             512,
		CompactionBatchSize:       1000,
		MaxIssuePeriodSeconds:     60,
	},
	Database: PDDatabase{
		Url:      "",
		MaxConns: 10,
	},
}

// translate PD_KAFKA__EVENT_TOPIC to kafka.event_topic
func envToKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func parseSettings() *PDSettings {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		log.Fatalf("could not load default settings: %s", err.Error())
	}
	if err := k.Load(env.Provider(envPrefix, ".", envToKey), nil); err != nil {
		log.Fatalf("could not load settings from environment: %s", err.Error())
	}
	parsed := &PDSettings{}
	err := k.UnmarshalWithConf("", parsed, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           parsed,
		},
	})
	if err != nil {
		log.Fatalf("could not decode settings: %s", err.Error())
	}
	return parsed
}

func ResetSettings() {
	Settings = parseSettings()
	setupLogger(Settings)
	Kafka = &Settings.Kafka
	Cache = &Settings.Cache
	Pipeline = &Settings.Pipeline
	Database = &Settings.Database
}
