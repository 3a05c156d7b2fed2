package simulation

import (
	"github.com/benbjohnson/clock"
	"math/rand"
	"mock-chat-backend/internal/storage"
	"time"
)

const (
	DefaultPresenceInterval   = 60 * time.Second
	DefaultChatterInterval    = 300 * time.Second
	DefaultChatterProbability = 0.2
)

// DefaultChatterLines is the flavor text pool for synthetic chat messages
var DefaultChatterLines = []string{
	"Does anyone know when the next Happy Ghast update will be released?",
	"Just found a huge ancient city in the deep dark! The loot is amazing!",
	"Anyone want to team up to defeat the Ender Dragon with the new weapons?",
	"The graphics in Happy Ghast with RTX enabled are simply incredible",
	"I think new boss mobs will be added in the next update, maybe a corrupted ghast?",
	"Can anyone share some building tips for the new glass types?",
	"Today the server is really slow, anyone else experiencing lag when breaking blocks?",
	"Just discovered a super cool easter egg in the ocean monument!",
	"My rare item collection is finally complete, so happy I found that last ghast tear!",
	"The new Happy Ghast character skins are too good to pass up, I had to buy them all",
}

// Option alters the default configuration of a Loop
type Option interface {
	apply(*config)
}

type optionFunc func(c *config)

func (f optionFunc) apply(c *config) { f(c) }

type config struct {
	presenceInterval   time.Duration
	chatterInterval    time.Duration
	chatterProbability float64
	chatterLines       []string
	roomID             string
	clock              clock.Clock
	rand               *rand.Rand
}

func defaultConfig() config {
	return config{
		presenceInterval:   DefaultPresenceInterval,
		chatterInterval:    DefaultChatterInterval,
		chatterProbability: DefaultChatterProbability,
		chatterLines:       DefaultChatterLines,
		roomID:             storage.GeneralRoomID,
		clock:              clock.New(),
		rand:               rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// PresenceInterval sets how often a random user flips presence
func PresenceInterval(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.presenceInterval = d
	})
}

// ChatterInterval sets how often a synthetic message may be injected
func ChatterInterval(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.chatterInterval = d
	})
}

// ChatterProbability sets the chance of a chatter tick producing a message, clamped to [0, 1]
func ChatterProbability(p float64) Option {
	return optionFunc(func(c *config) {
		switch {
		case p < 0:
			p = 0
		case p > 1:
			p = 1
		}
		c.chatterProbability = p
	})
}

// ChatterLines replaces the flavor text pool, an empty pool disables chatter
func ChatterLines(lines []string) Option {
	return optionFunc(func(c *config) {
		c.chatterLines = append([]string(nil), lines...)
	})
}

// Room sets the room receiving synthetic chatter.
// Presence announcements always go to the general room.
func Room(id string) Option {
	return optionFunc(func(c *config) {
		c.roomID = id
	})
}

// WithClock sets the clock driving both tickers
func WithClock(cl clock.Clock) Option {
	return optionFunc(func(c *config) {
		c.clock = cl
	})
}

// WithRand sets the random source, the Loop serializes access to it
func WithRand(r *rand.Rand) Option {
	return optionFunc(func(c *config) {
		c.rand = r
	})
}
