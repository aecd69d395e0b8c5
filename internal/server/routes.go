// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
	"github.com/sigil-dev/simplekp/pkg/trapi"
)

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, s.handleHealth)

	// The raw body is documented as a binary string, so schema validation
	// is skipped and handleQuery checks the document itself.
	huma.Register(s.api, huma.Operation{
		OperationID:      "query",
		Method:           http.MethodPost,
		Path:             "/query",
		Summary:          "Answer a query graph",
		Description:      "Returns every embedding of the query graph into the stored knowledge graph, together with the knowledge subgraph the results reference.",
		Tags:             []string{"query"},
		MaxBodyBytes:     s.cfg.MaxBodyBytes,
		SkipValidateBody: true,
	}, s.handleQuery)

	huma.Register(s.api, huma.Operation{
		OperationID: "operations",
		Method:      http.MethodGet,
		Path:        "/ops",
		Summary:     "List answerable (source category, predicate, target category) triples",
		Tags:        []string{"capabilities"},
	}, s.handleOperations)

	huma.Register(s.api, huma.Operation{
		OperationID: "metadata",
		Method:      http.MethodGet,
		Path:        "/metadata",
		Summary:     "Preferred identifier prefixes per category",
		Tags:        []string{"capabilities"},
	}, s.handleMetadata)
}

// --- Request/Response types for huma ---

// HealthBody is the JSON body of the health endpoint response.
type HealthBody struct {
	Status  string `json:"status" example:"ok" doc:"Health status"`
	Name    string `json:"name" doc:"Provider name"`
	Version string `json:"version" doc:"Provider version"`
}

// HealthResponse wraps the health check response.
type HealthResponse struct {
	Body HealthBody
}

// The body is decoded by hand: query nodes and edges carry arbitrary
// constraint keys and scalar-or-list values that a generated schema rejects.
type queryInput struct {
	RawBody []byte `contentType:"application/json"`
}

type queryOutput struct {
	Body trapi.Response
}

type operationsOutput struct {
	Body []trapi.Operation
}

type metadataOutput struct {
	Body trapi.Metadata
}

// --- Handlers ---

func (s *Server) handleHealth(_ context.Context, _ *struct{}) (*HealthResponse, error) {
	return &HealthResponse{Body: HealthBody{
		Status:  "ok",
		Name:    s.cfg.Name,
		Version: s.cfg.Version,
	}}, nil
}

func (s *Server) handleQuery(ctx context.Context, input *queryInput) (*queryOutput, error) {
	if len(input.RawBody) == 0 {
		return nil, huma.Error400BadRequest("request body is required")
	}

	var q trapi.Query
	if err := json.Unmarshal(input.RawBody, &q); err != nil {
		return nil, huma.Error400BadRequest("invalid query: " + err.Error())
	}
	if q.Message.QueryGraph == nil {
		return nil, huma.Error400BadRequest("message.query_graph is required")
	}

	kg, results, err := s.provider.GetResults(ctx, *q.Message.QueryGraph)
	if err != nil {
		return nil, s.apiError(err, "answering query")
	}

	out := &queryOutput{}
	out.Body.Message = trapi.Message{
		QueryGraph:     q.Message.QueryGraph,
		KnowledgeGraph: kg,
		Results:        results,
	}
	return out, nil
}

func (s *Server) handleOperations(ctx context.Context, _ *struct{}) (*operationsOutput, error) {
	ops, err := s.provider.Operations(ctx)
	if err != nil {
		return nil, s.apiError(err, "listing operations")
	}
	return &operationsOutput{Body: ops}, nil
}

func (s *Server) handleMetadata(ctx context.Context, _ *struct{}) (*metadataOutput, error) {
	md, err := s.provider.Metadata(ctx)
	if err != nil {
		return nil, s.apiError(err, "reading metadata")
	}
	return &metadataOutput{Body: md}, nil
}

// apiError maps a coded error onto an HTTP status. Server-side failures are
// logged and reported without detail.
func (s *Server) apiError(err error, action string) error {
	status := sigilerr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		code := sigilerr.CodeOf(err)
		if code == "" {
			code = sigilerr.CodeServerInternalFailure
		}
		s.logger.Error("internal error", "context", action, "code", code, "fields", sigilerr.FieldsOf(err), "error", err)
		return huma.Error500InternalServerError("internal server error")
	}
	return huma.NewError(status, err.Error())
}
