// Package querymem provides an embedded Go client for the query memory
// service: a semantic record of past search queries with similarity
// retrieval, recency history, click-weighted popularity, and click
// feedback, partitioned by tenant and optional user.
//
//	client, _ := querymem.New(ctx,
//	    querymem.WithRedis("localhost:6379", ""),
//	    querymem.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
//	id, _ := client.SaveQuery(ctx, querymem.SaveQueryRequest{
//	    Query:    "how to rotate api keys",
//	    TenantID: "acme",
//	})
//	matches, _ := client.Similar(ctx, querymem.SimilarRequest{
//	    Query:    "rotating api keys",
//	    TenantID: "acme",
//	})
//
// The in-memory driver (WithMemory) runs the same code paths without a
// database and suits tests and small embedded deployments.
package querymem
