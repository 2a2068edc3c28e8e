package notifier

import (
	"fmt"

	"lookout/internal/broker"
	"lookout/internal/config"
	"lookout/internal/constants"
)

func New(cfg config.NotifierConfig, brokerCfg config.BrokerConfig, producer broker.Producer) (Notifier, error) {
	switch cfg.Type {
	case constants.NotifierTypeWebhook:
		return NewWebhookNotifier(cfg), nil
	case constants.NotifierTypeKafka:
		if producer == nil {
			return nil, fmt.Errorf("kafka notifier selected but no producer available")
		}
		return NewKafkaNotifier(producer, brokerCfg.Kafka.OutputTopic, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown notifier type: %s", cfg.Type)
	}
}
