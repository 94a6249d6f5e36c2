package result

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/darianrosebrook/agent-resilience-go/pkg/cerrors"
	"github.com/darianrosebrook/agent-resilience-go/pkg/events"
	"github.com/darianrosebrook/agent-resilience-go/pkg/log"
	"github.com/darianrosebrook/agent-resilience-go/pkg/types"
)

// TestStatus is the experiment status carried by a result record.
type TestStatus struct {
	Phase                  types.ResultPhase   `json:"phase"`
	Verdict                types.ResultVerdict `json:"verdict"`
	FailStep               string              `json:"failStep,omitempty"`
	ErrorCode              string              `json:"errorCode,omitempty"`
	ProbeSuccessPercentage string              `json:"probeSuccessPercentage,omitempty"`
}

// ProbeStatuses is the recorded status of a single probe.
type ProbeStatuses struct {
	Name   string            `json:"name"`
	Type   string            `json:"type"`
	Mode   string            `json:"mode"`
	Status types.ProbeStatus `json:"status"`
}

// HistoryDetails accumulates verdicts and targets across runs that share a
// result name.
type HistoryDetails struct {
	PassedRuns  int                   `json:"passedRuns"`
	FailedRuns  int                   `json:"failedRuns"`
	StoppedRuns int                   `json:"stoppedRuns"`
	Targets     []types.TargetDetails `json:"targets,omitempty"`
}

// Record is the stored chaos result of one experiment run.
type Record struct {
	UID              string          `json:"uid"`
	Name             string          `json:"name"`
	EngineName       string          `json:"engineName"`
	ExperimentName   string          `json:"experimentName"`
	InstanceID       string          `json:"instanceId,omitempty"`
	ExperimentStatus TestStatus      `json:"experimentStatus"`
	ProbeStatuses    []ProbeStatuses `json:"probeStatuses,omitempty"`
	History          HistoryDetails  `json:"history"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Store keeps the chaos results and suite records of the current run. The
// framework never persists results beyond the process, so the store is the
// single source of truth for verdict lookups.
type Store struct {
	mu      sync.Mutex
	records map[string]*Record
	tests   []TestResult
}

// NewStore returns an empty result store.
func NewStore() *Store {
	return &Store{records: make(map[string]*Record)}
}

// Get returns a copy of the named result record.
func (s *Store) Get(name string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[name]
	if !ok {
		return Record{}, false
	}
	return *record, true
}

// List returns copies of every record, ordered by name.
func (s *Store) List() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]Record, 0, len(s.records))
	for _, record := range s.records {
		list = append(list, *record)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

//ChaosResult Create and Update the chaos result
func ChaosResult(chaosDetails *types.ChaosDetails, store *Store, resultDetails *types.ResultDetails, state string) error {
	if store == nil {
		return cerrors.Error{ErrorCode: cerrors.ErrorTypeChaosResultCRUD, Reason: "no result store configured"}
	}

	_, found := store.Get(resultDetails.Name)

	if state == "SOT" {
		if found {
			return PatchChaosResult(store, chaosDetails, resultDetails)
		}
		return InitializeChaosResult(chaosDetails, store, resultDetails)
	}

	// a Stopped phase set by the abort watcher survives the final patch
	if resultDetails.Phase == types.ResultPhaseRunning {
		resultDetails.Phase = types.ResultPhaseCompleted
	}
	return PatchChaosResult(store, chaosDetails, resultDetails)
}

//InitializeChaosResult create the chaos result
func InitializeChaosResult(chaosDetails *types.ChaosDetails, store *Store, resultDetails *types.ResultDetails) error {
	record := &Record{
		UID:            uuid.New().String(),
		Name:           resultDetails.Name,
		EngineName:     chaosDetails.EngineName,
		ExperimentName: chaosDetails.ExperimentName,
		InstanceID:     chaosDetails.InstanceID,
		ExperimentStatus: TestStatus{
			Phase:                  resultDetails.Phase,
			Verdict:                resultDetails.Verdict,
			ProbeSuccessPercentage: "Awaited",
		},
		UpdatedAt: time.Now(),
	}

	store.mu.Lock()
	store.records[record.Name] = record
	store.mu.Unlock()
	return nil
}

//PatchChaosResult Update the chaos result
func PatchChaosResult(store *Store, chaosDetails *types.ChaosDetails, resultDetails *types.ResultDetails) error {
	_, probeStatuses := GetProbeStatus(resultDetails)

	store.mu.Lock()
	defer store.mu.Unlock()

	record, ok := store.records[resultDetails.Name]
	if !ok {
		return cerrors.Error{
			ErrorCode: cerrors.ErrorTypeChaosResultCRUD,
			Target:    fmt.Sprintf("{name: %s}", resultDetails.Name),
			Reason:    "chaos result not found in store",
		}
	}

	record.InstanceID = chaosDetails.InstanceID
	record.ExperimentStatus.Phase = resultDetails.Phase
	record.ExperimentStatus.Verdict = resultDetails.Verdict
	record.ExperimentStatus.FailStep = resultDetails.FailStep
	record.ExperimentStatus.ErrorCode = string(resultDetails.ErrorCode)
	record.ProbeStatuses = probeStatuses
	record.UpdatedAt = time.Now()

	switch resultDetails.Phase {
	case types.ResultPhaseCompleted, types.ResultPhaseStopped:
		if len(resultDetails.ProbeDetails) != 0 {
			percentage := (resultDetails.PassedProbeCount * 100) / len(resultDetails.ProbeDetails)
			record.ExperimentStatus.ProbeSuccessPercentage = strconv.Itoa(percentage)
		}
		updateHistory(record, chaosDetails, resultDetails)
	default:
		record.ExperimentStatus.ProbeSuccessPercentage = "Awaited"
	}
	return nil
}

// updateHistory bumps the verdict counters and merges the run's targets.
func updateHistory(record *Record, chaosDetails *types.ChaosDetails, resultDetails *types.ResultDetails) {
	switch resultDetails.Verdict {
	case types.ResultVerdictPassed:
		record.History.PassedRuns++
	case types.ResultVerdictFailed:
		record.History.FailedRuns++
	case types.ResultVerdictStopped:
		record.History.StoppedRuns++
	}

	for _, target := range chaosDetails.Targets {
		merged := false
		for i := range record.History.Targets {
			if record.History.Targets[i].Name == target.Name && record.History.Targets[i].Kind == target.Kind {
				record.History.Targets[i].ChaosStatus = target.ChaosStatus
				merged = true
				break
			}
		}
		if !merged {
			record.History.Targets = append(record.History.Targets, target)
		}
	}
}

// GetProbeStatus derives the stored probe statuses and reports whether all
// probes passed.
func GetProbeStatus(resultDetails *types.ResultDetails) (bool, []ProbeStatuses) {
	isAllProbePassed := true

	probeStatuses := []ProbeStatuses{}
	for _, probe := range resultDetails.ProbeDetails {
		probeStatuses = append(probeStatuses, ProbeStatuses{
			Name:   probe.Name,
			Type:   probe.Type,
			Mode:   probe.Mode,
			Status: probe.Status,
		})
		if probe.Status.Verdict == types.ProbeVerdictFailed {
			isAllProbePassed = false
		}
	}
	return isAllProbePassed, probeStatuses
}

// SetResultUID sets the ResultUID into the ResultDetails structure
func SetResultUID(resultDetails *types.ResultDetails, store *Store, chaosDetails *types.ChaosDetails) error {
	record, ok := store.Get(resultDetails.Name)
	if !ok {
		return cerrors.Error{
			ErrorCode: cerrors.ErrorTypeChaosResultCRUD,
			Target:    fmt.Sprintf("{name: %s, engine: %s}", resultDetails.Name, chaosDetails.EngineName),
			Reason:    "chaos result not found in store",
		}
	}
	resultDetails.ResultUID = record.UID
	return nil
}

// RecordAfterFailure marks the run failed with the root cause of the given
// error, patches the result and emits the failure events.
func RecordAfterFailure(chaosDetails *types.ChaosDetails, resultDetails *types.ResultDetails, err error, store *Store, bus *events.Bus, eventsDetails *types.EventDetails) {
	failStep, errorCode := cerrors.GetRootCauseAndErrorCode(err, string(chaosDetails.Phase))
	types.SetResultAfterCompletion(resultDetails, types.ResultVerdictFailed, types.ResultPhaseCompleted, failStep, errorCode)
	if err := ChaosResult(chaosDetails, store, resultDetails, "EOT"); err != nil {
		log.Errorf("failed to update chaos result, err: %v", err)
	}

	// add the summary event in chaos result
	msg := "experiment: " + chaosDetails.ExperimentName + ", Result: " + string(resultDetails.Verdict)
	types.SetResultEventAttributes(eventsDetails, types.FailVerdict, msg, "Warning", resultDetails)
	if err := events.GenerateEvents(eventsDetails, bus, chaosDetails, "ChaosResult"); err != nil {
		log.Errorf("failed to create %v event inside chaosresult", types.FailVerdict)
	}

	// add the summary event in chaos engine
	if chaosDetails.EngineName != "" {
		types.SetEngineEventAttributes(eventsDetails, types.Summary, msg, "Summary", chaosDetails)
		if err := events.GenerateEvents(eventsDetails, bus, chaosDetails, "ChaosEngine"); err != nil {
			log.Errorf("failed to create %v event inside chaosresult", types.Summary)
		}
	}
}
