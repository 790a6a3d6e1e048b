// Package app provides the legal QA service application.
package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	cacheopts "github.com/kart-io/lexrag/pkg/options/cache"
	engineopts "github.com/kart-io/lexrag/pkg/options/engine"
	llmopts "github.com/kart-io/lexrag/pkg/options/llm"
	logopts "github.com/kart-io/lexrag/pkg/options/logger"
	httpopts "github.com/kart-io/lexrag/pkg/options/server/http"
)

// Options contains the configuration options for the service.
type Options struct {
	// HTTP contains HTTP server configuration.
	HTTP *httpopts.Options `json:"http" mapstructure:"http"`

	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"log"`

	// Embedding contains embedding provider configuration.
	Embedding *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// Chat contains chat provider configuration.
	Chat *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// Engine contains retrieval engine configuration.
	Engine *engineopts.Options `json:"engine" mapstructure:"engine"`

	// Cache contains query cache configuration.
	Cache *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewOptions creates an Options instance with default values.
func NewOptions() *Options {
	httpOpts := httpopts.NewOptions()
	httpOpts.Addr = ":8082"

	return &Options{
		HTTP:            httpOpts,
		Log:             logopts.NewOptions(),
		Embedding:       llmopts.NewEmbeddingOptions(),
		Chat:            llmopts.NewChatOptions(),
		Engine:          engineopts.NewOptions(),
		Cache:           cacheopts.NewOptions(),
		ShutdownTimeout: 30 * time.Second,
	}
}

// AddFlags adds all service flags to the given FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.HTTP.AddFlags(fs)
	o.Log.AddFlags(fs)
	o.Embedding.AddFlags(fs, "embedding")
	o.Chat.AddFlags(fs, "chat")
	o.Engine.AddFlags(fs)
	o.Cache.AddFlags(fs)

	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")
}

// Complete completes all the required options.
func (o *Options) Complete() error {
	if err := o.HTTP.Complete(); err != nil {
		return err
	}
	if err := o.Embedding.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.Chat.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := o.Engine.Complete(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := o.Cache.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Validate checks whether the options are valid.
func (o *Options) Validate() error {
	var errs []error

	errs = append(errs, o.HTTP.Validate()...)
	if err := o.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.Embedding.Validate()...)
	errs = append(errs, o.Chat.Validate()...)
	errs = append(errs, o.Engine.Validate()...)
	errs = append(errs, o.Cache.Validate()...)

	return errors.Join(errs...)
}
