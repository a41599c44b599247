package model

// SearchPhase is the state of the Search concern
type SearchPhase int

const (
	SearchIdle SearchPhase = iota
	SearchTyping
)

var searchPhaseNames = [...]string{"idle", "typing"}

func (p SearchPhase) String() string { return phaseName(searchPhaseNames[:], int(p)) }

// MarshalText renders the phase name in JSON
func (p SearchPhase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// CheckPhase is the state of the Check concern
type CheckPhase int

const (
	CheckIdle CheckPhase = iota
	Checking
	Checked
	CheckFailed
)

var checkPhaseNames = [...]string{"idle", "checking", "checked", "failed"}

func (p CheckPhase) String() string { return phaseName(checkPhaseNames[:], int(p)) }

// MarshalText renders the phase name in JSON
func (p CheckPhase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// RoutePhase is the state of the Route concern
type RoutePhase int

const (
	RouteIdle RoutePhase = iota
	RouteResolving
	RouteRouting
	RouteReady
	RouteFailed
)

var routePhaseNames = [...]string{"idle", "resolving", "routing", "ready", "failed"}

func (p RoutePhase) String() string { return phaseName(routePhaseNames[:], int(p)) }

// MarshalText renders the phase name in JSON
func (p RoutePhase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func phaseName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return "unknown"
	}
	return names[i]
}

// SessionState is a read-only copy of one session, as rendered to the UI.
// It is produced by the controller; mutating it has no effect.
type SessionState struct {
	QueryText            string          `json:"query_text"`
	Matches              []Facility      `json:"matches"`
	MatchAvailability    map[string]Lots `json:"match_availability"`
	SelectedFacility     *Facility       `json:"selected_facility,omitempty"`
	SelectedAvailability *int            `json:"selected_availability,omitempty"`
	OriginAddress        string          `json:"origin_address"`
	OriginCoords         *Point          `json:"origin_coords,omitempty"`
	RoutePath            []Point         `json:"route_path"`
	RouteVisible         bool            `json:"route_visible"`
	ErrorMessage         string          `json:"error_message,omitempty"`
	Busy                 bool            `json:"busy"`

	// Version increases with every change; observers use it to drop
	// snapshots that arrive out of order.
	Version uint64 `json:"version"`

	Search SearchPhase `json:"search"`
	Check  CheckPhase  `json:"check"`
	Route  RoutePhase  `json:"route"`
}
