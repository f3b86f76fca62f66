// Package revenium provides usage metering middleware for the Perplexity
// chat completions API.
//
// It captures completion metrics (tokens, timing, model, stop reason) from
// both streaming and non-streaming responses and sends them asynchronously
// to the Revenium metering API. Metering never alters the caller-visible
// response and never fails the caller's request: every failure inside the
// metering path is caught, classified, and logged.
//
// Two integration points are provided:
//
//   - Client.TrackCompletion meters a finished (non-streaming) chat
//     completion response.
//   - Client.WrapStream decorates a stream of completion chunks, forwarding
//     every chunk unchanged while accumulating usage and emitting exactly
//     one tracking record when the stream completes, errors, or is
//     abandoned before its natural end.
//
// Usage:
//
//	client, err := revenium.NewClient(
//	    revenium.WithAPIKey(os.Getenv("REVENIUM_METERING_API_KEY")),
//	)
//	if err != nil {
//	    panic(err)
//	}
//	defer client.Flush()
//
//	// Non-streaming
//	start := time.Now()
//	resp := callPerplexity(req)
//	client.TrackCompletion(ctx, req, resp, start, time.Since(start))
//
//	// Streaming
//	stream := client.WrapStream(ctx, upstream, req)
//	for {
//	    chunk, err := stream.Recv()
//	    if err != nil {
//	        break
//	    }
//	    consume(chunk)
//	}
//	stream.Close()
//
// Cost is computed server-side; Client.FetchCost polls the Revenium
// profitstream API for the computed cost of a transaction, and
// Client.PrintSummary renders a terminal summary when configured.
package revenium
