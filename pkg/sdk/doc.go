// Package vecquery embeds the vecquery query builder in a Go program.
//
// The builder turns a user query string into a search engine query. Terms
// of the reserved "semantic" field are vectorized and scored with a vector
// script when a vectorizer is configured and the engine supports it.
//
//	client, _ := vecquery.New(ctx,
//	    vecquery.WithVectorizer(myVectorizer),
//	    vecquery.WithEngine("opensearch2"),
//	)
//	res, _ := client.Build(ctx, "semantic:tokyo tower sort:updated",
//	    vecquery.Languages("ja", "en"),
//	    vecquery.Roles("guest"),
//	)
//	body, _ := res.JSON()
package vecquery
