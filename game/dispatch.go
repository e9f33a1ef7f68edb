package game

import (
	"context"
	"fmt"

	"scmem/process"
	"scmem/units"
)

// Command names one operation of the command surface.
type Command string

const (
	CmdAttach               Command = "attach"
	CmdDetach               Command = "detach"
	CmdStartDetection       Command = "startDetection"
	CmdStopDetection        Command = "stopDetection"
	CmdIsDetectionRunning   Command = "isDetectionRunning"
	CmdGetStatus            Command = "getStatus"
	CmdUnitCount            Command = "unitCount"
	CmdAllUnitCounts        Command = "allUnitCounts"
	CmdUnitCountsByCategory Command = "unitCountsByCategory"
	CmdPlayerUnits          Command = "playerUnits"
	CmdPlayerSnapshot       Command = "playerSnapshot"
)

// Commands lists every command Dispatch understands.
var Commands = []Command{
	CmdAttach, CmdDetach, CmdStartDetection, CmdStopDetection, CmdIsDetectionRunning, CmdGetStatus,
	CmdUnitCount, CmdAllUnitCounts, CmdUnitCountsByCategory, CmdPlayerUnits, CmdPlayerSnapshot,
}

// Request is the serializable form of one command. Fields a command does not use are ignored.
type Request struct {
	Command           Command `json:"command"`
	PID               int     `json:"pid,omitempty"`
	UnitType          string  `json:"unitType,omitempty"`
	Player            int     `json:"player,omitempty"`
	Category          string  `json:"category,omitempty"`
	IncludeProduction bool    `json:"includeProduction,omitempty"`
}

// Response carries the result of one command. OK is the boolean acknowledgment.
type Response struct {
	OK       bool               `json:"ok"`
	Error    string             `json:"error,omitempty"`
	Running  *bool              `json:"running,omitempty"`
	Status   *Status            `json:"status,omitempty"`
	Count    *int               `json:"count,omitempty"`
	Counts   map[string]int     `json:"counts,omitempty"`
	Units    []units.UnitRecord `json:"units,omitempty"`
	Snapshot *PlayerSnapshot    `json:"snapshot,omitempty"`
}

func failed(err error) Response {
	return Response{Error: err.Error()}
}

// Dispatch maps a request onto exactly one manager operation.
func (m *Manager) Dispatch(ctx context.Context, req Request) Response {
	switch req.Command {
	case CmdAttach:
		if !m.Attach(process.ProcessID(req.PID)) {
			return Response{Error: fmt.Sprintf("attach to pid %d failed", req.PID)}
		}
		return Response{OK: true}

	case CmdDetach:
		m.Detach()
		return Response{OK: true}

	case CmdStartDetection:
		if err := m.StartDetection(ctx); err != nil {
			return failed(err)
		}
		return Response{OK: true}

	case CmdStopDetection:
		m.StopDetection()
		return Response{OK: true}

	case CmdIsDetectionRunning:
		running := m.IsDetectionRunning()
		return Response{OK: true, Running: &running}

	case CmdGetStatus:
		status := m.GetStatus()
		return Response{OK: true, Status: &status}

	case CmdUnitCount:
		t, err := units.ParseUnitType(req.UnitType)
		if err != nil {
			return failed(err)
		}
		n, ok := m.UnitCount(t, req.Player, req.IncludeProduction)
		return Response{OK: ok, Count: &n}

	case CmdAllUnitCounts:
		counts := m.AllUnitCounts(req.Player, req.IncludeProduction)
		return Response{OK: counts != nil, Counts: namedCounts(counts)}

	case CmdUnitCountsByCategory:
		category, err := units.ParseCategory(req.Category)
		if err != nil {
			return failed(err)
		}
		counts := m.UnitCountsByCategory(req.Player, category, req.IncludeProduction)
		return Response{OK: counts != nil, Counts: namedCounts(counts)}

	case CmdPlayerUnits:
		return Response{OK: true, Units: m.PlayerUnits(req.Player)}

	case CmdPlayerSnapshot:
		snap := m.PlayerSnapshot(req.Player, req.IncludeProduction)
		return Response{OK: true, Snapshot: &snap}
	}

	return Response{Error: fmt.Sprintf("unknown command %q", req.Command)}
}
