// Package llm is a provider-agnostic chat completion client.
//
// An Adapter pairs the rest client with a Dialect that maps the universal
// CompletionRequest/CompletionResponse types onto one vendor's JSON format.
// Dialects for OpenAI-compatible servers and Ollama live in the openai and
// ollama subpackages and register themselves on import:
//
//	import _ "github.com/kbukum/scribe/llm/openai"
//
//	adapter, err := llm.New(llm.Config{
//	    Dialect: "openai",
//	    BaseURL: "https://api.openai.com/v1",
//	    Model:   "gpt-4o-mini",
//	    APIKey:  os.Getenv("OPENAI_API_KEY"),
//	})
//	text, err := llm.Complete(ctx, adapter, llm.Prompt(system, user))
//
// Adapter satisfies provider.RequestResponse, so it composes with the
// provider middlewares (logging, tracing, metrics, resilience).
package llm
