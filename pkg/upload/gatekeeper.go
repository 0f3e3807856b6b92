package upload

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyFile       = errors.New("uploaded file is empty")
	ErrFileTooLarge    = errors.New("file is too large")
	ErrUnsupportedType = errors.New("file type is not supported")
)

// Gatekeeper validates candidate uploads and derives their storage keys.
// Rejections happen before any storage or network call.
type Gatekeeper struct {
	policy     Policy
	extensions map[string]struct{}
}

func NewGatekeeper(policy Policy) *Gatekeeper {
	exts := make(map[string]struct{})
	for _, ext := range policy.AllowedExtensions {
		if trimmed := strings.ToLower(strings.TrimSpace(ext)); trimmed != "" {
			exts[trimmed] = struct{}{}
		}
	}
	return &Gatekeeper{policy: policy, extensions: exts}
}

func (g *Gatekeeper) Check(name string, size int64) error {
	if size == 0 {
		return ErrEmptyFile
	}
	if size > g.policy.MaxSizeBytes {
		return fmt.Errorf("%w: maximum size is %d bytes", ErrFileTooLarge, g.policy.MaxSizeBytes)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if _, ok := g.extensions[ext]; !ok {
		return fmt.Errorf("%w: .%s", ErrUnsupportedType, ext)
	}
	return nil
}

// DeriveKey partitions keys by upload date; the random component keeps
// them collision-free within a day.
func (g *Gatekeeper) DeriveKey(originalName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%s/%s%s", now.UTC().Format("2006-01-02"), uuid.New().String(), ext)
}
