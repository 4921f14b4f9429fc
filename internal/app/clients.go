package app

import (
	"os"
	"strings"

	"github.com/yungbote/leadflow-backend/internal/clients/redis"
	"github.com/yungbote/leadflow-backend/internal/logger"
)

type Clients struct {
	// WorkBus is nil when REDIS_ADDR is unset. The worker falls back to
	// polling, so the bus is an optional latency optimization.
	WorkBus redis.WorkBus
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	var clients Clients
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		bus, err := redis.NewWorkBus(log)
		if err != nil {
			return Clients{}, err
		}
		clients.WorkBus = bus
	} else {
		log.Info("REDIS_ADDR not set, work bus disabled (poll-only pickup)")
	}
	return clients, nil
}
