// Package recordops queries and saves schema-validated records in an
// OpenSearch cluster or a Redis instance with the JSON and search modules.
//
// Records are stored with some fields nested inside container objects
// (by default "attributes"). A Schema unpacks them on read and the backend
// packs them again on write.
//
// # Backend-agnostic API
//
// A Builder only needs a Backend: any pair of query and mutation functions.
//
//	backend := recordops.BackendFuncs{QueryFunc: query, MutationFunc: mutate}
//	schema, _ := recordops.NewSchema[Usage](recordops.WithNested("amount", ""))
//	usage, _ := recordops.New[Usage, Usage](backend, schema)
//	page, _ := usage.Query(ctx, recordops.QueryParams{
//	    Filter: &recordops.Filter{And: &recordops.FilterGroup{
//	        Terms: []map[string]any{{"status": []any{"active"}}},
//	    }},
//	})
//	next, _ := page.Next(ctx)
//
// # Store-backed API
//
//	client, _ := recordops.NewClient(ctx, recordops.WithOpenSearch("https://localhost:9200"),
//	    recordops.WithInstance("prod"))
//	usage, _ := recordops.NewCollection(client, schema)
//	res, _ := usage.Save(ctx, records)
package recordops
