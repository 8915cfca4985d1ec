package schema

import (
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v2"

	"github.com/sgratzl/lineup-if-fi/pkg/contracts/domain"
)

// ParseDescription reads a description document. JSON documents are
// accepted as well since they are valid YAML.
func ParseDescription(data []byte) (domain.Description, error) {
	var desc domain.Description
	if err := yaml.UnmarshalStrict(data, &desc); err != nil {
		return domain.Description{}, fmt.Errorf("%w: %v", ErrInvalidDescription, err)
	}
	return desc, nil
}

// LoadDescriptionFile reads a description document from disk
func LoadDescriptionFile(path string) (domain.Description, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return domain.Description{}, fmt.Errorf("failed to expand %s: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return domain.Description{}, fmt.Errorf("failed to read description %s: %w", expanded, err)
	}
	return ParseDescription(data)
}

// MarshalDescription renders a description as YAML
func MarshalDescription(desc domain.Description) ([]byte, error) {
	return yaml.Marshal(desc)
}
