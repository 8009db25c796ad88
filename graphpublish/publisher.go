package graphpublish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"
)

func init() {
	err := component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "kgraph",
		Category:    "entity",
		Version:     "v1",
		Description: "Entity payload for knowledge-graph ingestion with triples",
		Factory:     func() any { return &EntityPayload{} },
	})
	if err != nil {
		panic("failed to register kgraph EntityPayload: " + err.Error())
	}
}

// GraphIngestSubject is the NATS subject entities publish to, matching
// graph/publish.go's GraphIngestSubject constant.
const GraphIngestSubject = "graph.ingest.entity"

// EntityType is the message type for kgraph entity payloads.
var EntityType = message.Type{Domain: "kgraph", Category: "entity", Version: "v1"}

// EntityPayload implements message.Payload and the graph engine's
// Graphable interface, mirrored directly from graph/payload.go's
// EntityPayload.
type EntityPayload struct {
	EntityID_  string           `json:"id"`
	TripleData []message.Triple `json:"triples"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (e *EntityPayload) EntityID() string          { return e.EntityID_ }
func (e *EntityPayload) Triples() []message.Triple { return e.TripleData }
func (e *EntityPayload) Schema() message.Type      { return EntityType }

func (e *EntityPayload) Validate() error {
	if e.EntityID_ == "" {
		return fmt.Errorf("entity ID is required")
	}
	return nil
}

// Publisher publishes entity triple batches to the graph ingestion stream.
type Publisher struct {
	nc *natsclient.Client
}

// NewPublisher wraps a NATS client for triple publication.
func NewPublisher(nc *natsclient.Client) *Publisher {
	return &Publisher{nc: nc}
}

// Publish marshals and publishes a single entity's triples.
func (p *Publisher) Publish(ctx context.Context, entityID string, triples []message.Triple, now time.Time) error {
	if p.nc == nil {
		return nil // graceful degradation, mirrors graph/publish.go's PublishProposal
	}
	entity := &EntityPayload{EntityID_: entityID, TripleData: triples, UpdatedAt: now}
	msg := message.NewBaseMessage(EntityType, entity, "kgraph")
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal entity message: %w", err)
	}
	return p.nc.PublishToStream(ctx, GraphIngestSubject, data)
}

// PublishChunk publishes one chunk's concepts, instances, and relationships
// in that order, then the chunk's own Source entity last — the
// "publish chunks then parent" ordering processor/web-ingester/
// component.go enforces, so a chunk's Source is never visible to a reader
// before the entities it evidences are.
func (p *Publisher) PublishChunk(ctx context.Context, conceptTriples, instanceTriples, relationshipTriples map[string][]message.Triple, sourceID string, sourceTriples []message.Triple, now time.Time) error {
	for id, triples := range conceptTriples {
		if err := p.Publish(ctx, id, triples, now); err != nil {
			return fmt.Errorf("publish concept %s: %w", id, err)
		}
	}
	for id, triples := range instanceTriples {
		if err := p.Publish(ctx, id, triples, now); err != nil {
			return fmt.Errorf("publish instance %s: %w", id, err)
		}
	}
	for id, triples := range relationshipTriples {
		if err := p.Publish(ctx, id, triples, now); err != nil {
			return fmt.Errorf("publish relationship %s: %w", id, err)
		}
	}
	if err := p.Publish(ctx, sourceID, sourceTriples, now); err != nil {
		return fmt.Errorf("publish source %s: %w", sourceID, err)
	}
	return nil
}
