// Package execution runs GraphQL operations received over a websocket
// against a graphql-go schema.
package execution

import (
	"context"
	"fmt"

	"github.com/bhoriuchi/graphql-ws/protocol"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/graphql-go/graphql/language/source"
)

// RootValueFunc resolves the root object for an operation
type RootValueFunc func(ctx context.Context) map[string]interface{}

// ContextValueFunc builds the execution context for an operation
type ContextValueFunc func(ctx context.Context, req *protocol.Request) context.Context

// Config defines the configuration parameters of an executor
type Config struct {
	Schema           *graphql.Schema
	RootValueFunc    RootValueFunc
	ContextValueFunc ContextValueFunc
}

// Executor implements graphqlws.SubscriptionExecutor on top of
// graphql-go. Subscriptions stream through graphql.Subscribe; queries
// and mutations arriving over the socket execute once through
// graphql.Do and produce a single-element stream.
type Executor struct {
	schema           *graphql.Schema
	rootValueFunc    RootValueFunc
	contextValueFunc ContextValueFunc
}

// NewExecutor creates a new executor
func NewExecutor(config Config) *Executor {
	return &Executor{
		schema:           config.Schema,
		rootValueFunc:    config.RootValueFunc,
		contextValueFunc: config.ContextValueFunc,
	}
}

// ExecuteSubscription implements graphqlws.SubscriptionExecutor
func (e *Executor) ExecuteSubscription(ctx context.Context, req *protocol.Request) (<-chan *protocol.Response, error) {
	if e.schema == nil {
		return nil, fmt.Errorf("the GraphQL schema is not provided")
	}

	operation, err := requestedOperation(req)
	if err != nil {
		return nil, err
	}

	rootObject := map[string]interface{}{}
	if e.rootValueFunc != nil {
		rootObject = e.rootValueFunc(ctx)
	}

	if e.contextValueFunc != nil {
		ctx = e.contextValueFunc(ctx, req)
	}

	args := graphql.Params{
		Schema:         *e.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		RootObject:     rootObject,
		Context:        ctx,
	}

	// queries and mutations produce a single result
	if operation.Operation != ast.OperationTypeSubscription {
		out := make(chan *protocol.Response, 1)
		out <- responseFrom(graphql.Do(args))
		close(out)
		return out, nil
	}

	results := graphql.Subscribe(args)
	out := make(chan *protocol.Response)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return

			case res, more := <-results:
				if !more {
					return
				}

				select {
				case out <- responseFrom(res):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// requestedOperation parses the request and locates the operation it
// names, deciding between the single-result and streaming paths. The
// operation name is required when the document defines more than one
// operation.
func requestedOperation(req *protocol.Request) (*ast.OperationDefinition, error) {
	document, err := parser.Parse(parser.ParseParams{
		Source: source.NewSource(&source.Source{
			Body: []byte(req.Query),
			Name: "GraphQL request",
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse query: %s", err)
	}

	var operation *ast.OperationDefinition
	for _, def := range document.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}

		if req.OperationName == "" {
			if operation != nil {
				return nil, fmt.Errorf("must provide operation name if query contains multiple operations")
			}
			operation = op
			continue
		}

		if op.GetName() != nil && op.GetName().Value == req.OperationName {
			operation = op
		}
	}

	if operation == nil {
		return nil, fmt.Errorf("unable to identify operation %q", req.OperationName)
	}

	return operation, nil
}

func responseFrom(res *graphql.Result) *protocol.Response {
	return &protocol.Response{
		Data:       res.Data,
		Errors:     gqlerrors.FormattedErrors(res.Errors),
		Extensions: res.Extensions,
	}
}
