package annotate

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/glog"
)

// ProjectRepository loads the project collection and maintains the
// project mirror the Authorizer reads. Projects are created and
// administered server-side; the client only loads them.
type ProjectRepository struct {
	cache  *CollectionCache[map[string]*Project]
	mirror *Mirror[*Project]
	log    LogFunction
}

func newProjectRepository(ctx context.Context, api *GatewayApi) *ProjectRepository {
	repository := &ProjectRepository{
		mirror: NewMirror[*Project](),
		log:    LogFn(2, "[repo]project"),
	}
	repository.cache = NewCollectionCache[map[string]*Project](
		ctx,
		string(KindProject),
		func(ctx context.Context) (map[string]*Project, error) {
			result, err := api.GetCollectionSync(KindProject)
			if err != nil {
				return nil, err
			}
			if result.Envelope.Variant == EnvelopeUnrecognized {
				return nil, fmt.Errorf("unrecognized project collection envelope")
			}
			projects := map[string]*Project{}
			for _, record := range result.Envelope.Records {
				project, err := NormalizeProject(record)
				if err != nil {
					repository.log("skipping record (%s)", err)
					continue
				}
				projects[project.Id] = project
			}
			return projects, nil
		},
		func() map[string]*Project {
			return map[string]*Project{}
		},
		func(projects map[string]*Project) {
			repository.mirror.ReplaceAll(projects)
			repository.log("mirror repopulated (%d entries)", len(projects))
		},
	)
	return repository
}

// LoadAll resolves the project collection in stable id order.
func (self *ProjectRepository) LoadAll(ctx context.Context) []*Project {
	projects := self.cache.Get(ctx)
	ordered := make([]*Project, 0, len(projects))
	for _, id := range sortedKeys(projects) {
		ordered = append(ordered, projects[id])
	}
	return ordered
}

func (self *ProjectRepository) Get(projectId string) (*Project, bool) {
	return self.mirror.Get(projectId)
}

func (self *ProjectRepository) Invalidate() {
	self.cache.Invalidate()
}

// NetworkRepository is the network analog of ProjectRepository.
type NetworkRepository struct {
	cache  *CollectionCache[map[string]*Network]
	mirror *Mirror[*Network]
	log    LogFunction
}

func newNetworkRepository(ctx context.Context, api *GatewayApi) *NetworkRepository {
	repository := &NetworkRepository{
		mirror: NewMirror[*Network](),
		log:    LogFn(2, "[repo]network"),
	}
	repository.cache = NewCollectionCache[map[string]*Network](
		ctx,
		string(KindNetwork),
		func(ctx context.Context) (map[string]*Network, error) {
			result, err := api.GetCollectionSync(KindNetwork)
			if err != nil {
				return nil, err
			}
			if result.Envelope.Variant == EnvelopeUnrecognized {
				return nil, fmt.Errorf("unrecognized network collection envelope")
			}
			networks := map[string]*Network{}
			for _, record := range result.Envelope.Records {
				network, err := NormalizeNetwork(record)
				if err != nil {
					repository.log("skipping record (%s)", err)
					continue
				}
				networks[network.Id] = network
			}
			return networks, nil
		},
		func() map[string]*Network {
			return map[string]*Network{}
		},
		func(networks map[string]*Network) {
			repository.mirror.ReplaceAll(networks)
			repository.log("mirror repopulated (%d entries)", len(networks))
		},
	)
	return repository
}

func (self *NetworkRepository) LoadAll(ctx context.Context) []*Network {
	networks := self.cache.Get(ctx)
	ordered := make([]*Network, 0, len(networks))
	for _, id := range sortedKeys(networks) {
		ordered = append(ordered, networks[id])
	}
	return ordered
}

func (self *NetworkRepository) Get(networkId string) (*Network, bool) {
	return self.mirror.Get(networkId)
}

func (self *NetworkRepository) Invalidate() {
	self.cache.Invalidate()
}

// GpsTrackRepository is read-only: no create, update, delete or move.
type GpsTrackRepository struct {
	cache  *CollectionCache[map[string]*GpsTrack]
	mirror *Mirror[*GpsTrack]
	log    LogFunction
}

func newGpsTrackRepository(ctx context.Context, api *GatewayApi) *GpsTrackRepository {
	repository := &GpsTrackRepository{
		mirror: NewMirror[*GpsTrack](),
		log:    LogFn(2, "[repo]gps_track"),
	}
	repository.cache = NewCollectionCache[map[string]*GpsTrack](
		ctx,
		string(KindGpsTrack),
		func(ctx context.Context) (map[string]*GpsTrack, error) {
			result, err := api.GetCollectionSync(KindGpsTrack)
			if err != nil {
				return nil, err
			}
			if result.Envelope.Variant == EnvelopeUnrecognized {
				return nil, fmt.Errorf("unrecognized gps track collection envelope")
			}
			tracks := map[string]*GpsTrack{}
			for _, record := range result.Envelope.Records {
				track, err := NormalizeGpsTrack(record)
				if err != nil {
					repository.log("skipping record (%s)", err)
					continue
				}
				tracks[track.Id] = track
			}
			return tracks, nil
		},
		func() map[string]*GpsTrack {
			return map[string]*GpsTrack{}
		},
		func(tracks map[string]*GpsTrack) {
			repository.mirror.ReplaceAll(tracks)
			repository.log("mirror repopulated (%d entries)", len(tracks))
		},
	)
	return repository
}

func (self *GpsTrackRepository) LoadAll(ctx context.Context) []*GpsTrack {
	tracks := self.cache.Get(ctx)
	ordered := make([]*GpsTrack, 0, len(tracks))
	for _, id := range sortedKeys(tracks) {
		ordered = append(ordered, tracks[id])
	}
	return ordered
}

func (self *GpsTrackRepository) Get(trackId string) (*GpsTrack, bool) {
	return self.mirror.Get(trackId)
}

func (self *GpsTrackRepository) Invalidate() {
	self.cache.Invalidate()
}

// Registry owns all client-side collection state: one repository per
// entity kind, each with its own cache and mirror, plus the Authorizer
// reading the project and network mirrors. Constructed once at session
// start. There is no package-level mutable cache state.
type Registry struct {
	ctx    context.Context
	cancel context.CancelFunc

	api *GatewayApi

	renderers *CallbackList[Renderer]

	stateLock   sync.Mutex
	sessionAuth *SessionAuth

	projects *ProjectRepository
	networks *NetworkRepository

	stations         *EntityRepository
	surfaceStations  *EntityRepository
	landmarks        *EntityRepository
	pointsOfInterest *EntityRepository

	gpsTracks *GpsTrackRepository

	authorizer *Authorizer
}

func NewRegistry(api *GatewayApi) *Registry {
	return NewRegistryWithContext(context.Background(), api)
}

func NewRegistryWithContext(ctx context.Context, api *GatewayApi) *Registry {
	cancelCtx, cancel := context.WithCancel(ctx)

	registry := &Registry{
		ctx:       cancelCtx,
		cancel:    cancel,
		api:       api,
		renderers: NewCallbackList[Renderer](),
	}

	registry.projects = newProjectRepository(cancelCtx, api)
	registry.networks = newNetworkRepository(cancelCtx, api)
	registry.authorizer = NewAuthorizer(registry.projects.mirror, registry.networks.mirror)

	sessionAuth := registry.SessionAuth
	registry.stations = newEntityRepository(
		cancelCtx, KindStation, ScopeProject, api, registry.authorizer, registry.renderers, sessionAuth)
	registry.surfaceStations = newEntityRepository(
		cancelCtx, KindSurfaceStation, ScopeNetwork, api, registry.authorizer, registry.renderers, sessionAuth)
	registry.landmarks = newEntityRepository(
		cancelCtx, KindLandmark, ScopeProject, api, registry.authorizer, registry.renderers, sessionAuth)
	registry.pointsOfInterest = newEntityRepository(
		cancelCtx, KindPointOfInterest, ScopeProject, api, registry.authorizer, registry.renderers, sessionAuth)

	registry.gpsTracks = newGpsTrackRepository(cancelCtx, api)

	return registry
}

// SetAuthJwt attaches the session JWT to gateway calls and derives the
// audit identity for optimistic create patches.
func (self *Registry) SetAuthJwt(authJwt string) {
	self.api.SetAuthJwt(authJwt)
	sessionAuth, err := ParseSessionAuthUnverified(authJwt)
	if err != nil {
		glog.Infof("[registry]could not parse session jwt (%s)", err)
		return
	}
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	self.sessionAuth = sessionAuth
}

func (self *Registry) SessionAuth() *SessionAuth {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.sessionAuth
}

func (self *Registry) Api() *GatewayApi {
	return self.api
}

func (self *Registry) Projects() *ProjectRepository {
	return self.projects
}

func (self *Registry) Networks() *NetworkRepository {
	return self.networks
}

func (self *Registry) Stations() *EntityRepository {
	return self.stations
}

func (self *Registry) SurfaceStations() *EntityRepository {
	return self.surfaceStations
}

func (self *Registry) Landmarks() *EntityRepository {
	return self.landmarks
}

func (self *Registry) PointsOfInterest() *EntityRepository {
	return self.pointsOfInterest
}

func (self *Registry) GpsTracks() *GpsTrackRepository {
	return self.gpsTracks
}

func (self *Registry) Authorizer() *Authorizer {
	return self.authorizer
}

// EntityRepository looks up the mutable repository for a station-like
// kind. nil for the load-only kinds.
func (self *Registry) EntityRepository(kind EntityKind) *EntityRepository {
	switch kind {
	case KindStation:
		return self.stations
	case KindSurfaceStation:
		return self.surfaceStations
	case KindLandmark:
		return self.landmarks
	case KindPointOfInterest:
		return self.pointsOfInterest
	default:
		return nil
	}
}

// AddRenderer attaches a rendering collaborator. Returns the remove
// function.
func (self *Registry) AddRenderer(renderer Renderer) func() {
	return self.renderers.Add(renderer)
}

// InvalidateAll drops every kind's cached collection. Staleness is
// resolved only by explicit invalidation and re-fetch.
func (self *Registry) InvalidateAll() {
	self.projects.Invalidate()
	self.networks.Invalidate()
	self.stations.Invalidate()
	self.surfaceStations.Invalidate()
	self.landmarks.Invalidate()
	self.pointsOfInterest.Invalidate()
	self.gpsTracks.Invalidate()
}

func (self *Registry) Close() {
	self.cancel()
}
