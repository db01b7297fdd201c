package provider

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minewatch/go-mine-alerts/internal/message"
	"github.com/minewatch/go-mine-alerts/internal/models"
)

// Simulated stands in for an unconfigured or misconfigured channel: it
// synthesizes a short delay and a probabilistic outcome so the rest of the
// dispatch path is exercised without live credentials.
type Simulated struct {
	channel     models.Channel
	successRate float64
	delay       time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// DefaultSuccessRate mirrors observed real-world channel reliability:
// push 95%, SMS 98%, email 99%.
func DefaultSuccessRate(ch models.Channel) float64 {
	switch ch {
	case models.ChannelPush:
		return 0.95
	case models.ChannelSMS:
		return 0.98
	case models.ChannelEmail:
		return 0.99
	default:
		return 0.95
	}
}

func NewSimulated(ch models.Channel, successRate float64, delay time.Duration, seed int64) *Simulated {
	return &Simulated{
		channel:     ch,
		successRate: successRate,
		delay:       delay,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

func (s *Simulated) Channel() models.Channel {
	return s.channel
}

func (s *Simulated) Send(ctx context.Context, device *models.Device, msg message.Rendered) (Outcome, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		case <-time.After(s.delay):
		}
	}

	s.mu.Lock()
	roll := s.rng.Float64()
	s.mu.Unlock()

	if roll >= s.successRate {
		return Outcome{}, fmt.Errorf("simulated %s delivery failure for device %s", s.channel, device.ID)
	}
	return Outcome{ProviderRef: "sim-" + uuid.NewString()}, nil
}
