package app

import (
	"mock-chat-backend/internal/simulation"
	"time"
)

type Option interface {
	apply(*config)
}

type optionFunc func(c *config)

func (f optionFunc) apply(c *config) { f(c) }

// config defines fields used for configuring App instance
type config struct {
	simulate       bool
	username       string
	greeting       string
	simulationOpts []simulation.Option
	afterShutdown  []func()
}

func defaultConfig() config {
	return config{
		simulate: true,
	}
}

// EnvConfig defines fields used for parsing from environment variables
type EnvConfig struct {
	PresenceInterval   time.Duration `env:"PRESENCE_INTERVAL" envDefault:"60s"`
	ChatterInterval    time.Duration `env:"CHATTER_INTERVAL" envDefault:"300s"`
	ChatterProbability float64       `env:"CHATTER_PROBABILITY" envDefault:"0.2"`
	HistoryLimit       int           `env:"HISTORY_LIMIT" envDefault:"100"`
	Simulate           bool          `env:"SIMULATE" envDefault:"true"`
	Username           string        `env:"CHAT_USERNAME"`
	Greeting           string        `env:"CHAT_GREETING" envDefault:"Hello everyone!"`
}

// WithEnvConfig enables processing exported EnvConfig struct to act as a source of config parameters for App.
// HistoryLimit is consumed by the store, not by App.
func WithEnvConfig(cfg EnvConfig) Option {
	return optionFunc(func(c *config) {
		c.simulate = cfg.Simulate
		c.username = cfg.Username
		c.greeting = cfg.Greeting
		c.simulationOpts = append(c.simulationOpts,
			simulation.PresenceInterval(cfg.PresenceInterval),
			simulation.ChatterInterval(cfg.ChatterInterval),
			simulation.ChatterProbability(cfg.ChatterProbability),
		)
	})
}

// Simulate enables or disables the simulation loop
func Simulate(enabled bool) Option {
	return optionFunc(func(c *config) {
		c.simulate = enabled
	})
}

// Session logs username in on start, posts greeting if it is not empty and logs the user out on shutdown
func Session(username, greeting string) Option {
	return optionFunc(func(c *config) {
		c.username = username
		c.greeting = greeting
	})
}

// SimulationOptions passes options to the underlying simulation.Loop, later options win
func SimulationOptions(opts ...simulation.Option) Option {
	return optionFunc(func(c *config) {
		c.simulationOpts = append(c.simulationOpts, opts...)
	})
}

// RegisterAfterShutdown registers a function to call after the simulation is stopped
// f will not be called in separated goroutine
func RegisterAfterShutdown(f func()) Option {
	return optionFunc(func(c *config) {
		c.afterShutdown = append(c.afterShutdown, f)
	})
}
