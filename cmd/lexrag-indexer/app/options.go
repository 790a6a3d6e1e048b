// Package app provides the offline index builder application.
package app

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	llmopts "github.com/kart-io/lexrag/pkg/options/llm"
	logopts "github.com/kart-io/lexrag/pkg/options/logger"
)

// Options contains the configuration options for the index builder.
type Options struct {
	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"log"`

	// Embedding contains embedding provider configuration.
	Embedding *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// CorpusPath is the corpus file to index.
	CorpusPath string `json:"corpus" mapstructure:"corpus"`

	// OutputDir is the directory the index is written to.
	OutputDir string `json:"output-dir" mapstructure:"output-dir"`

	// BatchSize is the embedding batch size.
	BatchSize int `json:"batch-size" mapstructure:"batch-size"`
}

// NewOptions creates an Options instance with default values.
func NewOptions() *Options {
	return &Options{
		Log:       logopts.NewOptions(),
		Embedding: llmopts.NewEmbeddingOptions(),
		OutputDir: "_output/index",
		BatchSize: 32,
	}
}

// AddFlags adds all index builder flags to the given FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.Log.AddFlags(fs)
	o.Embedding.AddFlags(fs, "embedding")

	fs.StringVar(&o.CorpusPath, "corpus", o.CorpusPath, "Path to the corpus file to index")
	fs.StringVar(&o.OutputDir, "output-dir", o.OutputDir, "Directory the index is written to")
	fs.IntVar(&o.BatchSize, "batch-size", o.BatchSize, "Embedding batch size")
}

// Complete completes all the required options.
func (o *Options) Complete() error {
	if err := o.Embedding.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	return nil
}

// Validate checks whether the options are valid.
func (o *Options) Validate() error {
	var errs []error

	if o.CorpusPath == "" {
		errs = append(errs, fmt.Errorf("--corpus is required"))
	}
	if o.OutputDir == "" {
		errs = append(errs, fmt.Errorf("--output-dir is required"))
	}
	if o.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("--batch-size must be positive"))
	}
	errs = append(errs, o.Embedding.Validate()...)

	return errors.Join(errs...)
}
