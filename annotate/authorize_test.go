package annotate

import (
	"math"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestParseProjectRankNormalization(t *testing.T) {
	// all spellings of the same label normalize to the same rank
	assert.Equal(t, RankReadAndWrite, ParseProjectRank("read and write"))
	assert.Equal(t, RankReadAndWrite, ParseProjectRank("READ_AND_WRITE"))
	assert.Equal(t, RankReadAndWrite, ParseProjectRank(" Read_And_Write "))

	assert.Equal(t, RankWebViewer, ParseProjectRank("web viewer"))
	assert.Equal(t, RankReadOnly, ParseProjectRank("Read Only"))
	assert.Equal(t, RankAdmin, ParseProjectRank("  admin  "))

	// unmatched or missing labels resolve to unknown
	assert.Equal(t, RankUnknown, ParseProjectRank(""))
	assert.Equal(t, RankUnknown, ParseProjectRank("owner"))
	assert.Equal(t, RankUnknown, ParseProjectRank("read-write"))
}

func TestProjectRankMonotonicity(t *testing.T) {
	ranks := []ProjectRank{
		RankUnknown,
		RankWebViewer,
		RankReadOnly,
		RankReadAndWrite,
		RankAdmin,
	}
	for _, rank := range ranks {
		// delete implies write implies read, never the reverse
		if rank.Allows(ActionDelete) {
			assert.Equal(t, true, rank.Allows(ActionWrite))
		}
		if rank.Allows(ActionWrite) {
			assert.Equal(t, true, rank.Allows(ActionRead))
		}
	}

	assert.Equal(t, false, RankUnknown.Allows(ActionRead))
	assert.Equal(t, false, RankWebViewer.Allows(ActionRead))
	assert.Equal(t, true, RankReadOnly.Allows(ActionRead))
	assert.Equal(t, false, RankReadOnly.Allows(ActionWrite))
	assert.Equal(t, true, RankReadAndWrite.Allows(ActionWrite))
	assert.Equal(t, false, RankReadAndWrite.Allows(ActionDelete))
	assert.Equal(t, true, RankAdmin.Allows(ActionDelete))
}

func TestNetworkLevelMonotonicity(t *testing.T) {
	for level := LevelNone; level <= LevelAdmin; level += 1 {
		if level.Allows(ActionDelete) {
			assert.Equal(t, true, level.Allows(ActionWrite))
		}
		if level.Allows(ActionWrite) {
			assert.Equal(t, true, level.Allows(ActionRead))
		}
	}

	assert.Equal(t, false, LevelNone.Allows(ActionRead))
	assert.Equal(t, true, LevelReadOnly.Allows(ActionRead))
	assert.Equal(t, false, LevelReadOnly.Allows(ActionWrite))
	assert.Equal(t, true, LevelReadWrite.Allows(ActionWrite))
	assert.Equal(t, false, LevelReadWrite.Allows(ActionDelete))
	assert.Equal(t, true, LevelAdmin.Allows(ActionDelete))
}

func TestParseNetworkLevel(t *testing.T) {
	level := func(v float64) *float64 {
		return &v
	}

	// numeric field wins when present and finite
	assert.Equal(t, LevelAdmin, ParseNetworkLevel(level(3), ""))
	assert.Equal(t, LevelReadWrite, ParseNetworkLevel(level(2), "ADMIN"))
	assert.Equal(t, LevelNone, ParseNetworkLevel(level(0), "ADMIN"))

	// clamped to the defined range
	assert.Equal(t, LevelAdmin, ParseNetworkLevel(level(7), ""))
	assert.Equal(t, LevelNone, ParseNetworkLevel(level(-2), ""))

	// non-finite values fall back to the label
	assert.Equal(t, LevelAdmin, ParseNetworkLevel(level(math.NaN()), "admin"))
	assert.Equal(t, LevelReadWrite, ParseNetworkLevel(level(math.Inf(1)), "read and write"))

	// missing value falls back to the label
	assert.Equal(t, LevelReadOnly, ParseNetworkLevel(nil, "READ_ONLY"))
	assert.Equal(t, LevelNone, ParseNetworkLevel(nil, "WEB_VIEWER"))
	assert.Equal(t, LevelNone, ParseNetworkLevel(nil, ""))
}

func TestNormalizeAction(t *testing.T) {
	assert.Equal(t, ActionRead, NormalizeAction("read"))
	assert.Equal(t, ActionWrite, NormalizeAction("write"))
	assert.Equal(t, ActionDelete, NormalizeAction("delete"))

	// anything outside the vocabulary is read
	assert.Equal(t, ActionRead, NormalizeAction(""))
	assert.Equal(t, ActionRead, NormalizeAction("view"))
	assert.Equal(t, ActionRead, NormalizeAction("destroy"))
	assert.Equal(t, ActionRead, NormalizeAction(" WRITE "))
}

func TestResolveScope(t *testing.T) {
	// project-scoped by default
	scopeType, scopeId := ResolveScope(&Entity{
		Id:        "s1",
		Kind:      KindStation,
		ProjectId: "p1",
	})
	assert.Equal(t, ScopeProject, scopeType)
	assert.Equal(t, "p1", scopeId)

	// a non-empty network reference wins
	scopeType, scopeId = ResolveScope(&Entity{
		Id:        "s2",
		Kind:      KindStation,
		ProjectId: "p1",
		NetworkId: "n1",
	})
	assert.Equal(t, ScopeNetwork, scopeType)
	assert.Equal(t, "n1", scopeId)

	// the surface kind is network-scoped even without a reference
	scopeType, scopeId = ResolveScope(&Entity{
		Id:   "s3",
		Kind: KindSurfaceStation,
	})
	assert.Equal(t, ScopeNetwork, scopeType)
	assert.Equal(t, "", scopeId)
}

func testAuthorizer() *Authorizer {
	projects := NewMirror[*Project]()
	projects.Put("p1", &Project{Id: "p1", Rank: RankAdmin})
	projects.Put("p2", &Project{Id: "p2", Rank: RankReadOnly})

	networks := NewMirror[*Network]()
	networks.Put("n1", &Network{Id: "n1", Level: LevelReadWrite})

	return NewAuthorizer(projects, networks)
}

func TestAuthorizerHasAccess(t *testing.T) {
	authorizer := testAuthorizer()

	assert.Equal(t, true, authorizer.HasAccess(ScopeProject, "p1", ActionDelete))
	assert.Equal(t, true, authorizer.HasAccess(ScopeProject, "p2", ActionRead))
	assert.Equal(t, false, authorizer.HasAccess(ScopeProject, "p2", ActionWrite))

	assert.Equal(t, true, authorizer.HasAccess(ScopeNetwork, "n1", ActionWrite))
	assert.Equal(t, false, authorizer.HasAccess(ScopeNetwork, "n1", ActionDelete))

	// lookup failures deny, never error
	assert.Equal(t, false, authorizer.HasAccess(ScopeProject, "p404", ActionRead))
	assert.Equal(t, false, authorizer.HasAccess(ScopeNetwork, "n404", ActionRead))
	assert.Equal(t, false, authorizer.HasAccess(ScopeProject, "", ActionRead))
	assert.Equal(t, false, authorizer.HasAccess(ScopeType("region"), "p1", ActionRead))
}

func TestAuthorizerGetAccess(t *testing.T) {
	authorizer := testAuthorizer()

	assert.Equal(t, AccessSet{Read: true, Write: true, Delete: true}, authorizer.GetAccess(ScopeProject, "p1"))
	assert.Equal(t, AccessSet{Read: true}, authorizer.GetAccess(ScopeProject, "p2"))
	assert.Equal(t, AccessSet{Read: true, Write: true}, authorizer.GetAccess(ScopeNetwork, "n1"))
	assert.Equal(t, AccessSet{}, authorizer.GetAccess(ScopeProject, "p404"))
}

func TestAuthorizerEntityAccess(t *testing.T) {
	authorizer := testAuthorizer()

	assert.Equal(t, true, authorizer.HasEntityAccess(&Entity{Id: "s1", Kind: KindStation, ProjectId: "p1"}, ActionWrite))
	assert.Equal(t, false, authorizer.HasEntityAccess(&Entity{Id: "s2", Kind: KindStation, ProjectId: "p2"}, ActionWrite))
	// the network reference redirects the rank table
	assert.Equal(t, true, authorizer.HasEntityAccess(&Entity{Id: "s3", Kind: KindStation, ProjectId: "p2", NetworkId: "n1"}, ActionWrite))
	assert.Equal(t, false, authorizer.HasEntityAccess(nil, ActionRead))
}
