package classifier

import (
	"fmt"

	"lookout/internal/config"
	"lookout/internal/constants"
)

func New(cfg config.ClassifierConfig) (Classifier, error) {
	switch cfg.Type {
	case constants.ClassifierTypeAPI:
		return NewAPIClassifier(cfg), nil
	case constants.ClassifierTypeCEL:
		return NewCELClassifier(cfg)
	default:
		return nil, fmt.Errorf("unknown classifier type: %s", cfg.Type)
	}
}
