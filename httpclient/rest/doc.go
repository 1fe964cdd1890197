// Package rest provides a JSON-focused REST client built on httpclient.
//
// It inherits auth and resilience from httpclient and adds typed helpers:
//
//	client, _ := rest.New(httpclient.Config{
//	    BaseURL: "https://api.openai.com/v1",
//	    Auth:    httpclient.BearerAuth(key),
//	})
//
//	resp, err := rest.Post[chatResponse](ctx, client, "/chat/completions", body)
//
// Post also accepts a *httpclient.MultipartBody, which is how audio uploads
// get typed JSON responses back.
package rest
