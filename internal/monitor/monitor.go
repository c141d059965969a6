// Package monitor periodically writes a status report of every running
// bot to a file.
package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/OCAP2/combatbot/internal/logging"
	"github.com/OCAP2/combatbot/internal/mission"
)

// StatusFileName is written inside Dependencies.OutputDir.
const StatusFileName = "status.json"

// BotStatus is the reported state of one bot.
type BotStatus struct {
	Name        string  `json:"name"`
	Entity      int     `json:"entity"`
	Skill       float64 `json:"skill"`
	Weapon      string  `json:"weapon"`
	Aim         string  `json:"aim"`
	Enemy       int     `json:"enemy"`
	Fired       int64   `json:"fired"`
	DamageDealt float64 `json:"damageDealt"`
}

// Roster lists the bots to report on.
type Roster interface {
	Statuses() []BotStatus
}

// Status is one report.
type Status struct {
	Time     time.Time   `json:"time"`
	GameType string      `json:"gameType"`
	Map      string      `json:"map"`
	Frame    int64       `json:"frame"`
	Bots     []BotStatus `json:"bots"`
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager     *logging.SlogManager
	MissionContext *mission.Context
	Roster         Roster
	Frame          *logging.FrameContext
	OutputDir      string
	Interval       time.Duration
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus builds a report of the current match and bots.
func (s *Service) GetStatus() Status {
	settings := s.deps.MissionContext.Settings()
	st := Status{
		Time:     time.Now().UTC(),
		GameType: settings.GameType.String(),
		Map:      settings.MapTitle,
	}
	if s.deps.Frame != nil {
		st.Frame = s.deps.Frame.Frame()
	}
	if s.deps.Roster != nil {
		st.Bots = s.deps.Roster.Statuses()
	}
	return st
}

// Path is where the status file is written.
func (s *Service) Path() string {
	return filepath.Join(s.deps.OutputDir, StatusFileName)
}

// WriteStatus writes one report, replacing the previous one.
func (s *Service) WriteStatus(file *os.File) error {
	data, err := json.MarshalIndent(s.GetStatus(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate status file: %w", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to rewind status file: %w", err)
	}
	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}

	statusFile, err := os.Create(s.Path())
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("error creating status file: %w", err)
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()
		defer statusFile.Close()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor", "path", s.Path(), "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				// Leave the final state of the match behind.
				if err := s.WriteStatus(statusFile); err != nil {
					logger.Error("Error writing status", "error", err)
				}
				return
			case <-ticker.C:
				if err := s.WriteStatus(statusFile); err != nil {
					logger.Error("Error writing status", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for its goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
