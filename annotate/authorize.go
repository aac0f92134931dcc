package annotate

import (
	"math"
	"strings"
)

// Two independent rank systems govern access: projects carry a label
// rank, networks carry a numeric level. They are never conflated. Both
// satisfy the same action-threshold capability.

type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

// NormalizeAction maps anything outside the fixed vocabulary to read.
func NormalizeAction(action string) Action {
	switch Action(strings.ToLower(strings.TrimSpace(action))) {
	case ActionWrite:
		return ActionWrite
	case ActionDelete:
		return ActionDelete
	default:
		return ActionRead
	}
}

type ProjectRank int

const (
	RankUnknown      ProjectRank = 0
	RankWebViewer    ProjectRank = 1
	RankReadOnly     ProjectRank = 2
	RankReadAndWrite ProjectRank = 3
	RankAdmin        ProjectRank = 4
)

// normalizePermissionLabel: trim, uppercase, spaces to underscores.
func normalizePermissionLabel(label string) string {
	normalized := strings.ToUpper(strings.TrimSpace(label))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	return normalized
}

// ParseProjectRank matches a free-text permission label against the four
// known labels. Unmatched or missing labels resolve to RankUnknown.
func ParseProjectRank(label string) ProjectRank {
	switch normalizePermissionLabel(label) {
	case "WEB_VIEWER":
		return RankWebViewer
	case "READ_ONLY":
		return RankReadOnly
	case "READ_AND_WRITE":
		return RankReadAndWrite
	case "ADMIN":
		return RankAdmin
	default:
		return RankUnknown
	}
}

func (self ProjectRank) Allows(action Action) bool {
	switch NormalizeAction(string(action)) {
	case ActionWrite:
		return RankReadAndWrite <= self
	case ActionDelete:
		return RankAdmin <= self
	default:
		return RankReadOnly <= self
	}
}

func (self ProjectRank) String() string {
	switch self {
	case RankWebViewer:
		return "WEB_VIEWER"
	case RankReadOnly:
		return "READ_ONLY"
	case RankReadAndWrite:
		return "READ_AND_WRITE"
	case RankAdmin:
		return "ADMIN"
	default:
		return "UNKNOWN"
	}
}

type NetworkLevel int

const (
	LevelNone      NetworkLevel = 0
	LevelReadOnly  NetworkLevel = 1
	LevelReadWrite NetworkLevel = 2
	LevelAdmin     NetworkLevel = 3
)

// ParseNetworkLevel takes the numeric field directly when present and
// finite, clamped to [0, 3]. Otherwise it falls back to the label
// normalization with {ADMIN:3, READ_AND_WRITE:2, READ_ONLY:1, else:0}.
func ParseNetworkLevel(level *float64, label string) NetworkLevel {
	if level != nil && !math.IsNaN(*level) && !math.IsInf(*level, 0) {
		n := NetworkLevel(*level)
		if n < LevelNone {
			return LevelNone
		}
		if LevelAdmin < n {
			return LevelAdmin
		}
		return n
	}
	switch normalizePermissionLabel(label) {
	case "ADMIN":
		return LevelAdmin
	case "READ_AND_WRITE":
		return LevelReadWrite
	case "READ_ONLY":
		return LevelReadOnly
	default:
		return LevelNone
	}
}

func (self NetworkLevel) Allows(action Action) bool {
	switch NormalizeAction(string(action)) {
	case ActionWrite:
		return LevelReadWrite <= self
	case ActionDelete:
		return LevelAdmin <= self
	default:
		return LevelReadOnly <= self
	}
}

// the redundant label mirrored for legacy consumers of network records
func (self NetworkLevel) Label() string {
	switch self {
	case LevelAdmin:
		return "ADMIN"
	case LevelReadWrite:
		return "READ_AND_WRITE"
	case LevelReadOnly:
		return "READ_ONLY"
	default:
		return "NONE"
	}
}

type ScopeType string

const (
	ScopeProject ScopeType = "project"
	ScopeNetwork ScopeType = "network"
)

// ResolveScope decides which rank table governs a station-like entity.
// A non-empty network reference, or the surface kind, means
// network-scoped; otherwise project-scoped. The same UI surfaces both
// subsurface stations (project-owned) and surface stations
// (network-owned) through shared code paths.
func ResolveScope(entity *Entity) (ScopeType, string) {
	if entity.NetworkId != "" || entity.Kind == KindSurfaceStation {
		return ScopeNetwork, entity.NetworkId
	}
	return ScopeProject, entity.ProjectId
}

type AccessSet struct {
	Read   bool `json:"read"`
	Write  bool `json:"write"`
	Delete bool `json:"delete"`
}

// Authorizer answers access queries from the project and network
// mirrors. It never mutates them and never triggers a load: callers
// must ensure projects/networks are loaded before relying on rank
// lookups, else ranks resolve to unknown, which denies.
//
// These gates sit on rendering hot paths. Lookup failures (unknown ids,
// malformed labels) resolve to false, never to an error.
type Authorizer struct {
	projects *Mirror[*Project]
	networks *Mirror[*Network]
}

func NewAuthorizer(projects *Mirror[*Project], networks *Mirror[*Network]) *Authorizer {
	return &Authorizer{
		projects: projects,
		networks: networks,
	}
}

func (self *Authorizer) HasAccess(scopeType ScopeType, scopeId string, action Action) bool {
	if scopeId == "" {
		return false
	}
	switch scopeType {
	case ScopeNetwork:
		network, ok := self.networks.Get(scopeId)
		if !ok {
			return false
		}
		return network.Level.Allows(action)
	case ScopeProject:
		project, ok := self.projects.Get(scopeId)
		if !ok {
			return false
		}
		return project.Rank.Allows(action)
	default:
		return false
	}
}

func (self *Authorizer) GetAccess(scopeType ScopeType, scopeId string) AccessSet {
	return AccessSet{
		Read:   self.HasAccess(scopeType, scopeId, ActionRead),
		Write:  self.HasAccess(scopeType, scopeId, ActionWrite),
		Delete: self.HasAccess(scopeType, scopeId, ActionDelete),
	}
}

// HasEntityAccess resolves the entity's scope and applies its rank table.
func (self *Authorizer) HasEntityAccess(entity *Entity, action Action) bool {
	if entity == nil {
		return false
	}
	scopeType, scopeId := ResolveScope(entity)
	return self.HasAccess(scopeType, scopeId, action)
}
