package kafka

import (
	"time"
)

// Config holds Kafka configuration
type Config struct {
	Brokers  []string
	ClientID string

	// Producer settings
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:  []string{"localhost:9092"},
		ClientID: "wms-scan-service",

		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1,
	}
}

// Topics contains the Kafka topic names the scan service publishes to
var Topics = struct {
	ScanEvents      string
	InventoryEvents string
}{
	ScanEvents:      "wms.scan.events",
	InventoryEvents: "wms.inventory.events",
}
