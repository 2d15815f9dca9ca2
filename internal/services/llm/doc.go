// Package llm provides a Messages API client for script, topic, and outline
// generation.
//
// # Requests
//
// Every call is a single user turn with a max_tokens budget. When web search
// is requested the web_search server tool and its beta header are attached,
// and the request runs under the longer search timeout.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Create: send a request, receive the raw content blocks.
// Client.Complete: send a prompt, receive the joined text blocks.
// CompleteSearchFirst: try with web search, repeat without it on failure.
// DecodeLLMJSON / StripCodeFence / SplitSources: response post-processing.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors (including 529 overloaded)
// and network timeouts with exponential backoff (base 1s, max 10s, three
// attempts by default). Context cancellation aborts retries immediately.
package llm
