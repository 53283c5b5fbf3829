package s3

import (
	"errors"
	"fmt"
)

const (
	DefaultRegion = "us-east-1"
	// MinPartSize is the smallest part S3 accepts for all but the last part.
	MinPartSize = 5 << 20
)

// Config is the s3 backend's section. Endpoint points at S3-compatible
// services such as MinIO.
type Config struct {
	Bucket         string `yaml:"bucket" mapstructure:"bucket" json:"bucket"`
	Region         string `yaml:"region" mapstructure:"region" json:"region"`
	Endpoint       string `yaml:"endpoint" mapstructure:"endpoint" json:"endpoint"`
	AccessKey      string `yaml:"access_key" mapstructure:"access_key" json:"access_key"`
	SecretKey      string `yaml:"secret_key" mapstructure:"secret_key" json:"-"`
	ForcePathStyle bool   `yaml:"force_path_style" mapstructure:"force_path_style" json:"force_path_style"`
	// PartSize is the multipart chunk size for streaming writes.
	PartSize int64 `yaml:"part_size" mapstructure:"part_size" json:"part_size"`
}

func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.PartSize == 0 {
		c.PartSize = MinPartSize
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Bucket == "" {
		errs = append(errs, errors.New("s3: bucket is required"))
	}
	if c.Region == "" {
		errs = append(errs, errors.New("s3: region is required"))
	}
	if c.PartSize < MinPartSize {
		errs = append(errs, fmt.Errorf("s3: part_size must be at least %d", MinPartSize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("s3: invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) GetBucket() string { return c.Bucket }
