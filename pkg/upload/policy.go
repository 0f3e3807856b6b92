package upload

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy bounds what the gatekeeper accepts before anything touches storage.
type Policy struct {
	MaxSizeBytes      int64    `yaml:"max_size_bytes" json:"max_size_bytes"`
	AllowedExtensions []string `yaml:"allowed_extensions" json:"allowed_extensions"`
}

func DefaultPolicy() Policy {
	return Policy{
		MaxSizeBytes:      5 * 1024 * 1024,
		AllowedExtensions: []string{"pdf", "doc", "docx", "jpg", "jpeg", "png"},
	}
}

func LoadPolicy(path string) (Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultPolicy(), err
	}

	var policy Policy
	if err := yaml.Unmarshal(content, &policy); err != nil {
		return Policy{}, err
	}

	if policy.MaxSizeBytes <= 0 {
		policy.MaxSizeBytes = DefaultPolicy().MaxSizeBytes
	}
	if len(policy.AllowedExtensions) == 0 {
		return Policy{}, errors.New("no allowed extensions configured")
	}
	for i, ext := range policy.AllowedExtensions {
		policy.AllowedExtensions[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	}

	return policy, nil
}
