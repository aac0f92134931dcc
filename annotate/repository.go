package annotate

import (
	"context"
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// entityCollection is one accepted load result: the normalized entities
// keyed for the mirror, and the feature-collection pass-through shape
// handed to the map layer.
type entityCollection struct {
	entities   map[string]*Entity
	collection *geojson.FeatureCollection
}

func emptyEntityCollection() *entityCollection {
	return &entityCollection{
		entities:   map[string]*Entity{},
		collection: geojson.NewFeatureCollection(),
	}
}

// EntityRepository manages one annotation entity kind: single-flight
// loads through its cache, local mirror maintenance, writes through the
// gateway, and the renderer refresh hooks. One instance per kind, owned
// by the Registry.
type EntityRepository struct {
	ctx context.Context

	kind      EntityKind
	scopeType ScopeType

	api        *GatewayApi
	authorizer *Authorizer
	renderers  *CallbackList[Renderer]

	cache  *CollectionCache[*entityCollection]
	mirror *Mirror[*Entity]

	sessionAuth func() *SessionAuth

	log LogFunction
}

func newEntityRepository(
	ctx context.Context,
	kind EntityKind,
	scopeType ScopeType,
	api *GatewayApi,
	authorizer *Authorizer,
	renderers *CallbackList[Renderer],
	sessionAuth func() *SessionAuth,
) *EntityRepository {
	repository := &EntityRepository{
		ctx:         ctx,
		kind:        kind,
		scopeType:   scopeType,
		api:         api,
		authorizer:  authorizer,
		renderers:   renderers,
		mirror:      NewMirror[*Entity](),
		sessionAuth: sessionAuth,
		log:         LogFn(2, fmt.Sprintf("[repo]%s", kind)),
	}
	repository.cache = NewCollectionCache[*entityCollection](
		ctx,
		string(kind),
		repository.load,
		emptyEntityCollection,
		func(value *entityCollection) {
			// clear then repopulate, never merge
			repository.mirror.ReplaceAll(value.entities)
			repository.log("mirror repopulated (%d entries)", len(value.entities))
		},
	)
	return repository
}

func (self *EntityRepository) Kind() EntityKind {
	return self.kind
}

func (self *EntityRepository) ScopeType() ScopeType {
	return self.scopeType
}

// load is the cache loader. Transport and shape failures surface as
// errors here and resolve to the empty fallback at the cache.
func (self *EntityRepository) load(ctx context.Context) (*entityCollection, error) {
	result, err := self.api.GetCollectionSync(self.kind)
	if err != nil {
		return nil, err
	}
	envelope := result.Envelope
	if envelope.Variant == EnvelopeUnrecognized {
		return nil, fmt.Errorf("unrecognized %s collection envelope", self.kind)
	}

	value := emptyEntityCollection()
	for _, record := range envelope.Records {
		entity, err := NormalizeEntity(self.kind, record)
		if err != nil {
			self.log("skipping record (%s)", err)
			continue
		}
		value.entities[entity.Id] = entity
	}
	if envelope.Variant == EnvelopeFeatureCollection {
		// pass the gateway's own feature collection through unchanged
		value.collection = envelope.FeatureCollection
	} else {
		value.collection = FeatureCollectionOf(mirrorOrder(value.entities))
	}
	return value, nil
}

// LoadAll returns the kind's feature collection, from cache or via
// exactly one in-flight fetch. Load failures resolve to an empty
// collection; callers proceed with no data rather than crashing a
// render pass.
func (self *EntityRepository) LoadAll(ctx context.Context) *geojson.FeatureCollection {
	value := self.cache.Get(ctx)
	return value.collection
}

// LoadAllForScope loads the full collection once through the shared
// cache and filters client-side, so n scopes cost one network call.
// Fails closed: without read access to the scope it returns an empty
// collection and issues no network call.
func (self *EntityRepository) LoadAllForScope(ctx context.Context, scopeId string) *geojson.FeatureCollection {
	if !self.authorizer.HasAccess(self.scopeType, scopeId, ActionRead) {
		self.log("read access to %s %s denied, failing closed", self.scopeType, scopeId)
		return geojson.NewFeatureCollection()
	}

	value := self.cache.Get(ctx)
	filtered := []*Entity{}
	for _, entity := range mirrorOrder(value.entities) {
		if self.entityScopeId(entity) == scopeId {
			filtered = append(filtered, entity)
		}
	}
	return FeatureCollectionOf(filtered)
}

func (self *EntityRepository) entityScopeId(entity *Entity) string {
	if self.scopeType == ScopeNetwork {
		return entity.NetworkId
	}
	return entity.ProjectId
}

// Get reads the mirror. It never triggers a load.
func (self *EntityRepository) Get(entityId string) (*Entity, bool) {
	return self.mirror.Get(entityId)
}

// operationLog tags the kind logger with a mutation's operation id so
// one write can be followed across gateway, mirror, and renderer events.
func (self *EntityRepository) operationLog(operationId Id) LogFunction {
	return SubLogFn(2, self.log, fmt.Sprintf("op(%s)", operationId))
}

// Create performs the remote write first, then patches the mirror,
// invalidates the full-collection cache, and fires the renderer
// refresh. A remote failure leaves the mirror untouched and propagates.
func (self *EntityRepository) Create(ctx context.Context, scopeId string, args *EntityArgs) (*Entity, error) {
	if !self.authorizer.HasAccess(self.scopeType, scopeId, ActionWrite) {
		return nil, fmt.Errorf("write access to %s %s denied", self.scopeType, scopeId)
	}

	operationId := NewId()
	log := self.operationLog(operationId)

	writeArgs := *args
	writeArgs.OperationId = &operationId
	switch self.scopeType {
	case ScopeNetwork:
		writeArgs.Network = scopeId
	default:
		writeArgs.Project = scopeId
	}

	result, err := self.api.CreateEntitySync(self.kind, &writeArgs)
	if err != nil {
		return nil, err
	}

	entity, err := NormalizeEntity(self.kind, result.Record)
	if err != nil {
		// created remotely but the record is unusable locally. the next
		// reload reflects server truth.
		self.cache.Invalidate()
		return nil, err
	}
	// the scope reference is set exactly once, at creation
	if self.scopeType == ScopeNetwork && entity.NetworkId == "" {
		entity.NetworkId = scopeId
	} else if self.scopeType == ScopeProject && entity.ProjectId == "" {
		entity.ProjectId = scopeId
	}
	if entity.CreatedBy == "" {
		if sessionAuth := self.sessionAuth(); sessionAuth != nil {
			entity.CreatedBy = sessionAuth.UserName
		}
	}

	self.mirror.Put(entity.Id, entity)
	self.cache.Invalidate()
	self.refresh()
	self.reorder()
	log("created %s", entity.Id)
	return entity, nil
}

func (self *EntityRepository) Update(ctx context.Context, entityId string, args *EntityArgs) (*Entity, error) {
	existing, hasExisting := self.mirror.Get(entityId)
	if hasExisting && !self.authorizer.HasEntityAccess(existing, ActionWrite) {
		scopeType, scopeId := ResolveScope(existing)
		return nil, fmt.Errorf("write access to %s %s denied", scopeType, scopeId)
	}

	operationId := NewId()
	log := self.operationLog(operationId)

	writeArgs := *args
	writeArgs.OperationId = &operationId

	result, err := self.api.UpdateEntitySync(self.kind, entityId, &writeArgs)
	if err != nil {
		return nil, err
	}

	entity, err := NormalizeEntity(self.kind, result.Record)
	if err != nil {
		self.cache.Invalidate()
		return nil, err
	}
	if hasExisting {
		mergeEntity(entity, existing)
	}

	self.mirror.Put(entity.Id, entity)
	self.cache.Invalidate()
	self.refresh()
	log("updated %s", entity.Id)
	return entity, nil
}

func (self *EntityRepository) Delete(ctx context.Context, entityId string) error {
	existing, hasExisting := self.mirror.Get(entityId)
	if hasExisting && !self.authorizer.HasEntityAccess(existing, ActionDelete) {
		scopeType, scopeId := ResolveScope(existing)
		return fmt.Errorf("delete access to %s %s denied", scopeType, scopeId)
	}

	// DELETE carries no body, so the operation id only tags the trace
	operationId := NewId()
	log := self.operationLog(operationId)

	_, err := self.api.DeleteEntitySync(self.kind, entityId)
	if err != nil {
		return err
	}

	self.mirror.Delete(entityId)
	self.cache.Invalidate()
	self.refresh()
	log("deleted %s", entityId)
	return nil
}

// Move is a position-only update under the optimistic protocol. The
// caller shows the entity at `position` before calling; on remote
// failure each renderer gets exactly one revert instruction with the
// last known-good position, and the error propagates unmodified.
func (self *EntityRepository) Move(ctx context.Context, entityId string, position Position) error {
	operationId := NewId()
	log := self.operationLog(operationId)

	return runOptimisticMutation(
		func() (Position, bool) {
			entity, ok := self.mirror.Get(entityId)
			if !ok {
				// nothing to revert to
				return Position{}, false
			}
			return entity.Position, true
		},
		func() error {
			if entity, ok := self.mirror.Get(entityId); ok {
				if !self.authorizer.HasEntityAccess(entity, ActionWrite) {
					scopeType, scopeId := ResolveScope(entity)
					return fmt.Errorf("write access to %s %s denied", scopeType, scopeId)
				}
			}
			latitude := position.Latitude
			longitude := position.Longitude
			_, err := self.api.UpdateEntitySync(self.kind, entityId, &EntityArgs{
				OperationId: &operationId,
				Latitude:    &latitude,
				Longitude:   &longitude,
			})
			if err != nil {
				return err
			}
			if entity, ok := self.mirror.Get(entityId); ok {
				moved := *entity
				moved.Position = position
				self.mirror.Put(entityId, &moved)
			}
			self.cache.Invalidate()
			log("moved %s to %s", entityId, position)
			return nil
		},
		func(lastKnownGood Position) {
			log("move of %s failed, reverting to %s", entityId, lastKnownGood)
			for _, renderer := range self.renderers.Get() {
				renderer.RevertPosition(self.kind, entityId, lastKnownGood)
			}
		},
	)
}

// Invalidate forces the next LoadAll to fetch. An in-flight load, if
// any, is discarded on arrival.
func (self *EntityRepository) Invalidate() {
	self.cache.Invalidate()
}

func (self *EntityRepository) refresh() {
	collection := FeatureCollectionOf(self.mirror.Values())
	for _, renderer := range self.renderers.Get() {
		renderer.RefreshLayer(self.kind, collection)
	}
}

func (self *EntityRepository) reorder() {
	for _, renderer := range self.renderers.Get() {
		renderer.ReorderLayers()
	}
}

// mergeEntity keeps load-time fields the write response omitted. The
// owning scope never changes after creation.
func mergeEntity(entity *Entity, existing *Entity) {
	if entity.ProjectId == "" {
		entity.ProjectId = existing.ProjectId
	}
	if entity.NetworkId == "" {
		entity.NetworkId = existing.NetworkId
	}
	if entity.CreatedBy == "" {
		entity.CreatedBy = existing.CreatedBy
	}
	if entity.CreationDate == "" {
		entity.CreationDate = existing.CreationDate
	}
	if entity.Description == "" {
		entity.Description = existing.Description
	}
}

// mirrorOrder returns entities in stable id order for deterministic
// feature collections.
func mirrorOrder(entities map[string]*Entity) []*Entity {
	ordered := make([]*Entity, 0, len(entities))
	for _, id := range sortedKeys(entities) {
		ordered = append(ordered, entities[id])
	}
	return ordered
}
