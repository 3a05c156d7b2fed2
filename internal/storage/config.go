package storage

// DefaultHistoryLimit is the number of messages kept per room
const DefaultHistoryLimit = 100

// Option alters the default configuration used during new Store construction
type Option interface {
	apply(*config)
}

type optionFunc func(c *config)

func (f optionFunc) apply(c *config) { f(c) }

type config struct {
	historyLimit int
	seed         *Seed
}

func defaultConfig() config {
	return config{
		historyLimit: DefaultHistoryLimit,
	}
}

// HistoryLimit sets the maximum number of messages kept per room, non-positive values are ignored
func HistoryLimit(n int) Option {
	return optionFunc(func(c *config) {
		if n > 0 {
			c.historyLimit = n
		}
	})
}

// WithSeed populates the store with provided users, rooms and messages
func WithSeed(seed Seed) Option {
	return optionFunc(func(c *config) {
		c.seed = &seed
	})
}
