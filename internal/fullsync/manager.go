// Package fullsync owns the singleton lifecycle of the current
// full-synchronization cycle.
package fullsync

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/datarocks/lwgs-searchindex-client/internal/domain"
	"github.com/datarocks/lwgs-searchindex-client/internal/log"
	"github.com/datarocks/lwgs-searchindex-client/internal/pubsub"
)

// Mode is the process-wide full-sync state.
type Mode string

const (
	ModeReady   Mode = "READY"
	ModeSeeding Mode = "SEEDING"
	ModeSeeded  Mode = "SEEDED"
	ModeSending Mode = "SENDING"
	ModeSent    Mode = "SENT"
	ModeFailed  Mode = "FAILED"
)

// EventTransition is published on the manager's broker for every accepted
// transition.
const EventTransition pubsub.EventType = "fullsync.transition"

// Transition describes one accepted state change.
type Transition struct {
	From  Mode
	To    Mode
	JobID uuid.UUID
}

// IllegalTransitionError rejects a trigger that the transition table does
// not allow from the current mode.
type IllegalTransitionError struct {
	From Mode
	To   Mode
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal full-sync transition %s -> %s", e.From, e.To)
}

// Setting keys used to resume an interrupted cycle after a restart.
const (
	settingState       = "full.sync.state"
	settingJobID       = "full.sync.job.id"
	settingSeedCounter = "full.sync.seed.counter"
)

// StateManager is the single logical owner of the full-sync lifecycle.
// Every public operation is a critical section over the combined
// (mode, jobId, counters) tuple. It is constructed once and handed to
// every component that needs it; there is no ambient global.
type StateManager struct {
	mu          sync.Mutex
	mode        Mode
	jobID       uuid.UUID
	seedCounter int64

	settings domain.SettingRepository // optional; nil disables persistence
	broker   *pubsub.Broker[Transition]
}

// NewStateManager builds a manager in READY, or resumes the persisted
// cycle when settings holds one.
func NewStateManager(settings domain.SettingRepository) *StateManager {
	m := &StateManager{
		mode:     ModeReady,
		settings: settings,
		broker:   pubsub.NewBroker[Transition](),
	}
	m.restore()
	return m
}

// Events exposes the transition broker for observers.
func (m *StateManager) Events() *pubsub.Broker[Transition] {
	return m.broker
}

// Mode returns the current full-sync mode.
func (m *StateManager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// IsInStateSeeding reports whether admission to the full queue is open.
func (m *StateManager) IsInStateSeeding() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode == ModeSeeding
}

// CurrentFullSyncJobID returns the job id of the running cycle, or
// uuid.Nil outside a cycle.
func (m *StateManager) CurrentFullSyncJobID() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobID
}

// FullSeedMessageCounter returns the number of records admitted into the
// running cycle.
func (m *StateManager) FullSeedMessageCounter() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seedCounter
}

// IncFullSeedMessageCounter counts one admitted record. Safe under
// concurrent seeders.
func (m *StateManager) IncFullSeedMessageCounter() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seedCounter++
	m.persist()
}

// StartSeeding opens a new cycle: READY -> SEEDING with a fresh job id and
// reset counters.
func (m *StateManager) StartSeeding() (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != ModeReady {
		return uuid.Nil, &IllegalTransitionError{From: m.mode, To: ModeSeeding}
	}
	m.jobID = uuid.New()
	m.seedCounter = 0
	m.transition(ModeSeeding)
	return m.jobID, nil
}

// SubmitSeeding closes admission: SEEDING -> SEEDED.
func (m *StateManager) SubmitSeeding() error {
	return m.require(ModeSeeded, ModeSeeding)
}

// FailSeeding aborts the cycle during admission: SEEDING -> FAILED.
func (m *StateManager) FailSeeding() error {
	return m.require(ModeFailed, ModeSeeding)
}

// StartSending records the batcher's first outgoing Sedex message for the
// job: SEEDED -> SENDING.
func (m *StateManager) StartSending() error {
	return m.require(ModeSending, ModeSeeded)
}

// CompleteSending records that all outgoing Sedex messages are
// dispatched: SENDING -> SENT.
func (m *StateManager) CompleteSending() error {
	return m.require(ModeSent, ModeSending)
}

// Fail escalates a processing failure into the cycle: SEEDED|SENDING ->
// FAILED.
func (m *StateManager) Fail() error {
	return m.require(ModeFailed, ModeSeeded, ModeSending)
}

// EscalateFailure fails the running cycle when jobID is the cycle's job
// and the cycle is in SEEDED or SENDING. Escalations for other jobs or
// modes are ignored; the state processors call this on every job failure
// they record.
func (m *StateManager) EscalateFailure(jobID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.jobID != jobID {
		return
	}
	if m.mode != ModeSeeded && m.mode != ModeSending {
		return
	}
	m.transition(ModeFailed)
}

// Reset clears the finished cycle: SENT|FAILED -> READY.
func (m *StateManager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != ModeSent && m.mode != ModeFailed {
		return &IllegalTransitionError{From: m.mode, To: ModeReady}
	}
	m.jobID = uuid.Nil
	m.seedCounter = 0
	m.transition(ModeReady)
	return nil
}

// require performs to when the current mode is one of from, holding the
// lock for the whole check-and-set.
func (m *StateManager) require(to Mode, from ...Mode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range from {
		if m.mode == f {
			m.transition(to)
			return nil
		}
	}
	return &IllegalTransitionError{From: m.mode, To: to}
}

// transition must be called with the lock held.
func (m *StateManager) transition(to Mode) {
	from := m.mode
	m.mode = to
	m.persist()
	m.broker.Publish(EventTransition, Transition{From: from, To: to, JobID: m.jobID})
}

// persist writes the cycle state through the setting repository; called
// with the lock held. Persistence failures are logged, not surfaced: the
// in-memory state word stays authoritative for this process.
func (m *StateManager) persist() {
	if m.settings == nil {
		return
	}
	logger := log.WithComponent("fullsync")
	for key, value := range map[string]string{
		settingState:       string(m.mode),
		settingJobID:       m.jobID.String(),
		settingSeedCounter: strconv.FormatInt(m.seedCounter, 10),
	} {
		if err := m.settings.Save(&domain.Setting{Key: key, Value: value}); err != nil {
			logger.Error().Err(err).Str("key", key).Msg("failed to persist full-sync state")
		}
	}
}

// restore loads a previously persisted cycle, if any.
func (m *StateManager) restore() {
	if m.settings == nil {
		return
	}
	logger := log.WithComponent("fullsync")

	stateSetting, err := m.settings.FindByKey(settingState)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Error().Err(err).Msg("failed to restore full-sync state")
		}
		return
	}
	switch Mode(stateSetting.Value) {
	case ModeReady, ModeSeeding, ModeSeeded, ModeSending, ModeSent, ModeFailed:
		m.mode = Mode(stateSetting.Value)
	default:
		logger.Warn().Str("state", stateSetting.Value).Msg("ignoring unknown persisted full-sync state")
		return
	}

	if jobSetting, err := m.settings.FindByKey(settingJobID); err == nil {
		if jobID, parseErr := uuid.Parse(jobSetting.Value); parseErr == nil {
			m.jobID = jobID
		}
	}
	if counterSetting, err := m.settings.FindByKey(settingSeedCounter); err == nil {
		if counter, parseErr := strconv.ParseInt(counterSetting.Value, 10, 64); parseErr == nil {
			m.seedCounter = counter
		}
	}
}
