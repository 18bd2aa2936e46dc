// Package gmail adapts Gmail messages to host email items.
//
// Messages are fetched in raw format and parsed by the eml package, so a
// Gmail item and an .eml file produce the same context. The conversation
// comes from the Gmail thread, and the reply form creates a threaded draft
// instead of sending anything. Repeated replies update the same draft.
//
// Example usage:
//
//	hc, err := google.HTTPClient(ctx, oauthCfg, tokens, "default")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := gmail.NewClient(ctx, hc)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	msg, err := client.Item(ctx, "18c1f2...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	host := client.Host(msg)
package gmail
