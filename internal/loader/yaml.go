// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package loader

import (
	"errors"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/sigil-dev/simplekp/internal/store"
	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
)

// yamlList accepts a scalar or a sequence of scalars.
type yamlList []string

func (l *yamlList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*l = yamlList{node.Value}
		return nil
	}
	var values []string
	if err := node.Decode(&values); err != nil {
		return err
	}
	*l = values
	return nil
}

type yamlFixture struct {
	Nodes []struct {
		ID         string            `yaml:"id"`
		Category   yamlList          `yaml:"category"`
		Name       string            `yaml:"name"`
		Attributes map[string]string `yaml:"attributes"`
	} `yaml:"nodes"`
	Edges []struct {
		ID         string            `yaml:"id"`
		Subject    string            `yaml:"subject"`
		Predicate  yamlList          `yaml:"predicate"`
		Object     string            `yaml:"object"`
		Attributes map[string]string `yaml:"attributes"`
	} `yaml:"edges"`
}

// ReadYAML reads a fixture of the form
//
//	nodes:
//	  - id: MONDO:0005148
//	    category: [biolink:Disease]
//	edges:
//	  - subject: CHEBI:6801
//	    predicate: biolink:treats
//	    object: MONDO:0005148
//
// Edge ids default to the zero-based position in the edges list.
func ReadYAML(r io.Reader) (*Graph, error) {
	var fx yamlFixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return nil, sigilerr.Errorf(sigilerr.CodeLoaderParseInvalid, "parsing yaml fixture: %w", err)
	}

	g := &Graph{}
	for _, n := range fx.Nodes {
		if n.ID == "" {
			return nil, sigilerr.New(sigilerr.CodeLoaderParseInvalid, "yaml node without id")
		}
		g.Nodes = append(g.Nodes, &store.Node{
			ID:         n.ID,
			Categories: []string(n.Category),
			Name:       n.Name,
			Attributes: n.Attributes,
		})
	}
	for i, e := range fx.Edges {
		if e.Subject == "" || e.Object == "" || len(e.Predicate) == 0 {
			return nil, sigilerr.Errorf(sigilerr.CodeLoaderParseInvalid, "yaml edge %d needs subject, predicate and object", i)
		}
		id := e.ID
		if id == "" {
			id = edgeID(i)
		}
		g.Edges = append(g.Edges, &store.Edge{
			ID:         id,
			Subject:    e.Subject,
			Object:     e.Object,
			Predicates: []string(e.Predicate),
			Attributes: e.Attributes,
		})
	}
	return g, nil
}
