package execution_test

import (
	"context"
	"testing"
	"time"

	"github.com/bhoriuchi/graphql-ws/execution"
	"github.com/bhoriuchi/graphql-ws/protocol"
	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/require"
)

func testSchema(t *testing.T) *graphql.Schema {
	t.Helper()

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name: "Query",
			Fields: graphql.Fields{
				"hello": &graphql.Field{
					Type: graphql.String,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						return "world", nil
					},
				},
			},
		}),
		Subscription: graphql.NewObject(graphql.ObjectConfig{
			Name: "Subscription",
			Fields: graphql.Fields{
				"countdown": &graphql.Field{
					Type: graphql.Int,
					Args: graphql.FieldConfigArgument{
						"from": &graphql.ArgumentConfig{
							Type:         graphql.Int,
							DefaultValue: 3,
						},
					},
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						return p.Source, nil
					},
					Subscribe: func(p graphql.ResolveParams) (interface{}, error) {
						from := p.Args["from"].(int)

						c := make(chan interface{})
						go func() {
							defer close(c)
							for i := from; i > 0; i-- {
								select {
								case <-p.Context.Done():
									return
								case c <- i:
								}
							}
						}()

						return c, nil
					},
				},
				"forever": &graphql.Field{
					Type: graphql.Int,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						return p.Source, nil
					},
					Subscribe: func(p graphql.ResolveParams) (interface{}, error) {
						c := make(chan interface{})
						go func() {
							defer close(c)
							for i := 0; ; i++ {
								select {
								case <-p.Context.Done():
									return
								case c <- i:
								}
							}
						}()

						return c, nil
					},
				},
			},
		}),
	})
	require.NoError(t, err)

	return &schema
}

func collect(t *testing.T, results <-chan *protocol.Response) []*protocol.Response {
	t.Helper()

	responses := []*protocol.Response{}
	for {
		select {
		case res, more := <-results:
			if !more {
				return responses
			}
			responses = append(responses, res)

		case <-time.After(2 * time.Second):
			t.Fatal("timed out collecting responses")
		}
	}
}

func TestExecuteSubscription(t *testing.T) {
	e := execution.NewExecutor(execution.Config{Schema: testSchema(t)})

	results, err := e.ExecuteSubscription(context.Background(), &protocol.Request{
		Query: `subscription { countdown(from: 3) }`,
	})
	require.NoError(t, err)

	responses := collect(t, results)
	require.Len(t, responses, 3)

	for i, want := range []int{3, 2, 1} {
		require.False(t, responses[i].HasErrors())
		data, ok := responses[i].Data.(map[string]interface{})
		require.True(t, ok)
		require.EqualValues(t, want, data["countdown"])
	}
}

func TestExecuteQuery(t *testing.T) {
	e := execution.NewExecutor(execution.Config{Schema: testSchema(t)})

	results, err := e.ExecuteSubscription(context.Background(), &protocol.Request{
		Query: `{ hello }`,
	})
	require.NoError(t, err)

	responses := collect(t, results)
	require.Len(t, responses, 1)
	require.False(t, responses[0].HasErrors())

	data, ok := responses[0].Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "world", data["hello"])
}

func TestExecuteSubscriptionCancellation(t *testing.T) {
	e := execution.NewExecutor(execution.Config{Schema: testSchema(t)})

	ctx, cancel := context.WithCancel(context.Background())
	results, err := e.ExecuteSubscription(ctx, &protocol.Request{
		Query: `subscription { forever }`,
	})
	require.NoError(t, err)

	// read a couple of results, then cancel the operation
	for n := 0; n < 2; n++ {
		select {
		case _, more := <-results:
			require.True(t, more)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for result")
		}
	}

	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, more := <-results:
			return !more
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
}

func TestExecuteSubscriptionErrors(t *testing.T) {
	e := execution.NewExecutor(execution.Config{Schema: testSchema(t)})

	t.Run("parse failure", func(t *testing.T) {
		_, err := e.ExecuteSubscription(context.Background(), &protocol.Request{
			Query: `subscription {`,
		})
		require.Error(t, err)
	})

	t.Run("unknown operation name", func(t *testing.T) {
		_, err := e.ExecuteSubscription(context.Background(), &protocol.Request{
			Query:         `subscription A { countdown }`,
			OperationName: "B",
		})
		require.Error(t, err)
	})

	t.Run("missing schema", func(t *testing.T) {
		empty := execution.NewExecutor(execution.Config{})
		_, err := empty.ExecuteSubscription(context.Background(), &protocol.Request{
			Query: `{ hello }`,
		})
		require.Error(t, err)
	})
}

func TestRootAndContextValueFuncs(t *testing.T) {
	type key string

	var gotRoot map[string]interface{}

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name: "Query",
			Fields: graphql.Fields{
				"who": &graphql.Field{
					Type: graphql.String,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						root, _ := p.Info.RootValue.(map[string]interface{})
						gotRoot = root
						return p.Context.Value(key("viewer")), nil
					},
				},
			},
		}),
	})
	require.NoError(t, err)

	e := execution.NewExecutor(execution.Config{
		Schema: &schema,
		RootValueFunc: func(ctx context.Context) map[string]interface{} {
			return map[string]interface{}{"source": "ws"}
		},
		ContextValueFunc: func(ctx context.Context, req *protocol.Request) context.Context {
			return context.WithValue(ctx, key("viewer"), "alice")
		},
	})

	results, err := e.ExecuteSubscription(context.Background(), &protocol.Request{Query: `{ who }`})
	require.NoError(t, err)

	responses := collect(t, results)
	require.Len(t, responses, 1)

	data, ok := responses[0].Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "alice", data["who"])
	require.Equal(t, map[string]interface{}{"source": "ws"}, gotRoot)
}
