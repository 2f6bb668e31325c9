package world

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Kingdom status codes advertised to clients.
const (
	StatusOffline     uint8 = 0
	StatusOnline      uint8 = 1
	StatusFull        uint8 = 2
	StatusMaintenance uint8 = 3
)

// KingdomInfo is the static configuration of one kingdom.
type KingdomInfo struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	IP         string `json:"ip"`
	Port       uint16 `json:"port"`
	MaxPlayers int    `json:"maxPlayers"`
	Status     uint8  `json:"-"`
}

// Registry holds the configured kingdom list, loaded from a JSON file.
type Registry struct {
	kingdoms []KingdomInfo
	byID     map[int]int // id → index
}

// LoadRegistry parses the kingdoms JSON file: an array of
// {id, name, ip, port, maxPlayers}. Status defaults to online.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open kingdoms file %s: %w", path, err)
	}

	var entries []KingdomInfo
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse kingdoms file %s: %w", path, err)
	}

	reg := &Registry{byID: make(map[int]int, len(entries))}
	for _, e := range entries {
		if e.MaxPlayers <= 0 {
			e.MaxPlayers = 1000
		}
		e.Status = StatusOnline
		reg.byID[e.ID] = len(reg.kingdoms)
		reg.kingdoms = append(reg.kingdoms, e)
	}
	return reg, nil
}

// DefaultRegistry returns the fallback single-kingdom registry used when
// the config file is missing or empty.
func DefaultRegistry() *Registry {
	return &Registry{
		kingdoms: []KingdomInfo{{
			ID:         1,
			Name:       "Royaume Principal",
			MaxPlayers: 1000,
			Status:     StatusOnline,
		}},
		byID: map[int]int{1: 0},
	}
}

func (r *Registry) All() []KingdomInfo {
	return r.kingdoms
}

func (r *Registry) GetByID(id int) *KingdomInfo {
	if idx, ok := r.byID[id]; ok {
		return &r.kingdoms[idx]
	}
	return nil
}

func (r *Registry) Len() int {
	return len(r.kingdoms)
}

// BuildKingdoms instantiates a runtime Kingdom per configured entry,
// falling back to the default kingdom for an empty registry.
func BuildKingdoms(reg *Registry, log *zap.Logger) map[int]*Kingdom {
	kingdoms := make(map[int]*Kingdom, reg.Len())
	for _, info := range reg.All() {
		kingdoms[info.ID] = NewKingdom(info.ID, info.Name, log)
	}
	if len(kingdoms) == 0 {
		log.Warn("no kingdoms configured, creating the default kingdom")
		kingdoms[1] = NewKingdom(1, "Royaume Principal", log)
	}
	return kingdoms
}
