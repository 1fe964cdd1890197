// Package httpclient provides a configurable HTTP client with built-in
// authentication, multipart uploads and resilience (retry, circuit breaker,
// rate limiting).
//
// Non-2xx responses are classified into *errors.AppError values, so the
// resilience layer retries 429 and 5xx responses and gives up on other 4xx.
//
// The rest subpackage adds generic typed JSON helpers on top of Client.
//
// # Basic Usage
//
//	client, err := httpclient.New(httpclient.Config{
//	    Name:    "stt",
//	    BaseURL: "https://api.openai.com/v1",
//	    Auth:    httpclient.BearerAuth(apiKey),
//	})
//
//	resp, err := client.Do(ctx, httpclient.Request{
//	    Method: http.MethodPost,
//	    Path:   "/audio/transcriptions",
//	    Body: &httpclient.MultipartBody{
//	        Fields: map[string]string{"model": "whisper-1"},
//	        Files:  []httpclient.FileField{{FieldName: "file", Path: chunkPath}},
//	    },
//	})
package httpclient
