package query

import "github.com/c360studio/kgraph/graphmodel"

func stubConcept(id string) graphmodel.Concept {
	return graphmodel.Concept{ConceptID: id, Label: id}
}
