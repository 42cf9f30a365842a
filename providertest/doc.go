// Package providertest provides a fake Chat Completions endpoint for tests.
//
// The server answers with scripted responses in order and records every
// request it receives:
//
//	srv := providertest.NewServer(t, providertest.OK("Hi there", 10, 5))
//	p, _ := provider.NewOpenAIProvider(provider.GPT4oMini,
//	    provider.WithAPIKey("test-key"),
//	    provider.WithBaseURL(srv.URL),
//	)
//	out, err := p.Invoke(ctx, prompt.FromText("Hello"))
//	reqs := srv.Requests()
package providertest
