package async_treasury

import (
	"github.com/mean-dao/payment-streaming-server/pkg/config"
	"github.com/mean-dao/payment-streaming-server/pkg/config/env"
	"github.com/mean-dao/payment-streaming-server/pkg/config/memory"
	"github.com/mean-dao/payment-streaming-server/pkg/config/wrapper"
)

const (
	envConfigPrefix = "TREASURY_SERVICE_"

	AutoCloseBatchSizeConfigEnvName = envConfigPrefix + "AUTO_CLOSE_BATCH_SIZE"
	defaultAutoCloseBatchSize       = 10
)

type conf struct {
	autoCloseBatchSize config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			autoCloseBatchSize: env.NewUint64Config(AutoCloseBatchSizeConfigEnvName, defaultAutoCloseBatchSize),
		}
	}
}

type testOverrides struct {
	autoCloseBatchSize uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	if overrides.autoCloseBatchSize == 0 {
		overrides.autoCloseBatchSize = defaultAutoCloseBatchSize
	}

	return func() *conf {
		return &conf{
			autoCloseBatchSize: wrapper.NewUint64Config(memory.NewConfig(overrides.autoCloseBatchSize), defaultAutoCloseBatchSize),
		}
	}
}
