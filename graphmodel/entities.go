// Package graphmodel defines the entity types shared by ingest, graphstore,
// query, and vocabulary: Ontology, Source, DocumentMeta, Concept, Instance,
// Relationship, VocabType, VocabCategory, Artifact, and Job. These are plain
// data types; persistence lives in graphstore and storage, and
// publication-as-triples lives in graphpublish.
package graphmodel

import (
	"regexp"
	"strings"
	"time"
)

// OntologyState is the lifecycle state of an Ontology.
type OntologyState string

const (
	OntologyActive OntologyState = "active"
	OntologyFrozen OntologyState = "frozen"
)

// Ontology is a named collection owning a namespace of concepts, sources,
// and projections.
type Ontology struct {
	Name  string
	State OntologyState
}

// ContentType classifies a Source's payload.
type ContentType string

const (
	ContentText      ContentType = "text"
	ContentImage     ContentType = "image"
	ContentSynthetic ContentType = "synthetic"
)

// Source is a single processed chunk of a document.
type Source struct {
	SourceID    string
	Document    string // = ontology name
	Paragraph   int    // = chunk index
	FullText    string
	ContentType ContentType
	StorageKey  string // optional, set when overflowed to blob storage
	OffsetStart int
	OffsetEnd   int
	ContentHash string
}

// DocumentSourceType enumerates where an original document came from.
type DocumentSourceType string

const (
	DocSourceFile      DocumentSourceType = "file"
	DocSourceStdin     DocumentSourceType = "stdin"
	DocSourceMCP       DocumentSourceType = "mcp"
	DocSourceAPI       DocumentSourceType = "api"
	DocSourceURL       DocumentSourceType = "url"
	DocSourceSynthetic DocumentSourceType = "synthetic"
)

// DocumentMeta is the provenance record for one original ingested document.
type DocumentMeta struct {
	Filename    string
	SourceType  DocumentSourceType
	Hostname    string
	FilePath    string
	IngestedBy  string
	CreatedAt   time.Time
	JobID       string
	SourceCount int
	SourceIDs   []string
}

// CreationMethod records how a Concept entered the graph.
type CreationMethod string

const (
	CreationAPI           CreationMethod = "api"
	CreationCLI           CreationMethod = "cli"
	CreationMCP           CreationMethod = "mcp"
	CreationWorkstation   CreationMethod = "workstation"
	CreationImport        CreationMethod = "import"
	CreationLLMExtraction CreationMethod = "llm_extraction"
)

// Concept is a stable semantic entity in the graph.
type Concept struct {
	ConceptID      string
	Label          string
	Description    string
	SearchTerms    []string
	Embedding      []float32
	Ontology       string
	CreationMethod CreationMethod
	AccessCount    int
	CreatedAt      time.Time
}

// Instance is an evidence node bridging a Concept to a Source.
type Instance struct {
	InstanceID string
	ConceptID  string
	SourceID   string
	Quote      string
}

// RelationshipCategory groups relationship types by epistemic shape.
type RelationshipCategory string

const (
	CategoryLogicalTruth  RelationshipCategory = "logical_truth"
	CategoryCausal        RelationshipCategory = "causal"
	CategoryStructural    RelationshipCategory = "structural"
	CategoryTemporal      RelationshipCategory = "temporal"
	CategoryComparative   RelationshipCategory = "comparative"
	CategoryFunctional    RelationshipCategory = "functional"
	CategoryDefinitional  RelationshipCategory = "definitional"
)

// RelationshipSource records provenance of an edge.
type RelationshipSource string

const (
	RelSourceLLMExtraction RelationshipSource = "llm_extraction"
	RelSourceAPICreation   RelationshipSource = "api_creation"
	RelSourceHumanCuration RelationshipSource = "human_curation"
	RelSourceImport        RelationshipSource = "import"
	RelSourceInference     RelationshipSource = "inference"
)

// DirectionSemantics describes how an edge's direction should be read.
type DirectionSemantics string

const (
	DirectionOutward      DirectionSemantics = "outward"
	DirectionInward        DirectionSemantics = "inward"
	DirectionBidirectional DirectionSemantics = "bidirectional"
)

// relationshipTypePattern is the canonical vocabulary tag shape.
var relationshipTypePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{0,99}$`)

// ValidRelationshipType reports whether s is a well-formed vocabulary tag.
func ValidRelationshipType(s string) bool {
	return relationshipTypePattern.MatchString(s)
}

// Relationship is a typed, directed edge between two Concepts.
type Relationship struct {
	RelationshipID     string
	FromConceptID       string
	ToConceptID         string
	RelationshipType    string
	Category            RelationshipCategory
	Confidence          float64
	Source              RelationshipSource
	CreatedBy           string
	CreatedAt           time.Time
	DocumentID          string
	DirectionSemantics  DirectionSemantics
}

// EpistemicStatus is the current confidence classification of a vocabulary
// type, derived from the grounding distribution of its edges.
type EpistemicStatus string

const (
	EpistemicAffirmative      EpistemicStatus = "AFFIRMATIVE"
	EpistemicContested        EpistemicStatus = "CONTESTED"
	EpistemicContradictory    EpistemicStatus = "CONTRADICTORY"
	EpistemicHistorical       EpistemicStatus = "HISTORICAL"
	EpistemicInsufficientData EpistemicStatus = "INSUFFICIENT_DATA"
	EpistemicUnclassified     EpistemicStatus = "UNCLASSIFIED"
)

// EpistemicStats summarizes grounding over a VocabType's edges.
type EpistemicStats struct {
	AvgGrounding float64
}

// VocabType is a canonical relationship vocabulary entry.
type VocabType struct {
	Name               string
	Category            RelationshipCategory
	Description          string
	Embedding            []float32
	IsBuiltin            bool
	IsActive             bool
	UsageCount           int
	EpistemicStatus      EpistemicStatus
	EpistemicStats       EpistemicStats
	DirectionSemantics   DirectionSemantics
	// CreationMethod records how this type entered the vocabulary: a
	// built-in seed, human curation, or the ADR-032 auto-expand path when
	// the normalizer can't match an LLM-proposed type to anything
	// canonical. Mirrors Concept.CreationMethod; distinct from Category,
	// which groups by epistemic shape rather than provenance.
	CreationMethod       CreationMethod
	CreatedAt            time.Time
}

// VocabCategory groups VocabTypes.
type VocabCategory struct {
	Name string
}

// ArtifactType is the closed set of computed-result kinds.
type ArtifactType string

const (
	ArtifactPolarityAnalysis ArtifactType = "polarity_analysis"
	ArtifactProjection       ArtifactType = "projection"
	ArtifactQueryResult      ArtifactType = "query_result"
	ArtifactDiversityReport  ArtifactType = "diversity_report"
	ArtifactIngestionSummary ArtifactType = "ingestion_summary"
)

// ArtifactRepresentation is the closed set of consumer-facing shapes.
type ArtifactRepresentation string

const (
	RepresentationCLI             ArtifactRepresentation = "cli"
	RepresentationPolarityExplorer ArtifactRepresentation = "polarity_explorer"
	RepresentationMCPServer       ArtifactRepresentation = "mcp_server"
	RepresentationRaw             ArtifactRepresentation = "raw"
)

// Artifact is a computed result, stored either inline or as a blob pointer.
type Artifact struct {
	ID             string
	ArtifactType   ArtifactType
	Representation ArtifactRepresentation
	OwnerID        string
	GraphEpoch     int64
	Parameters     map[string]any
	Metadata       map[string]any
	Ontology       string
	ConceptIDs     []string
	InlineResult   []byte  // exactly one of InlineResult/GarageKey is set
	GarageKey      string
	CreatedAt      time.Time
	ExpiresAt      *time.Time
}

// JobStatus is a state in the Job state machine (no backward transitions).
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

// Job is a background work record.
type Job struct {
	JobID      string
	UserID     string
	Status     JobStatus
	Progress   map[string]any
	ArtifactID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// sanitizePattern matches characters that must be replaced when sanitizing
// ontology names, source keys, and artifact keys.
var sanitizePattern = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// Sanitize replaces every character outside [A-Za-z0-9._-] with "_", the
// single sanitization rule data model invariants require of ontology
// names, source keys, and artifact keys.
func Sanitize(s string) string {
	return sanitizePattern.ReplaceAllString(strings.TrimSpace(s), "_")
}
