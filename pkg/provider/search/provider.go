// Package search defines the interface for retrieving real-time information
// used to augment assistant responses, such as open pharmacies or on-call
// clinics near a named location.
package search

import "context"

// Query describes one augmentation lookup.
type Query struct {
	// Text is the user utterance that triggered the lookup.
	Text string

	// Language is the BCP 47 tag of the utterance ("en-US", "ar-SA").
	// Backends use it to localize results.
	Language string

	// Context carries optional extra hints, such as recent conversation
	// turns, that a backend may include in its request.
	Context string
}

// Result is the information a backend retrieved for a query.
type Result struct {
	// Content is plain text ready to be injected into a model prompt.
	// Empty content means the backend found nothing useful.
	Content string
}

// Provider retrieves real-time information for a query.
//
// Lookups are best effort. Callers treat an error the same as an empty
// result and proceed without augmentation.
type Provider interface {
	Search(ctx context.Context, q Query) (*Result, error)
}
