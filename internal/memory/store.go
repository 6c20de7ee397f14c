package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

// collectionName matches the collection the service has always written to, so
// existing on-disk memories survive upgrades.
const collectionName = "user_memory"

// Store wraps a persistent chromem-go collection of past interactions.
// Every document is one user message / assistant reply pair, tagged with the
// owning username; retrieval is always filtered to that username so one
// user's memories never surface in another's context.
//
// A Store constructed via Disabled (or a nil *Store) is permanently inert:
// Retrieve returns nothing, Persist does nothing. This keeps call sites free
// of "is the memory store configured" checks.
type Store struct {
	collection *chromem.Collection
}

// Open creates or reopens the persistent vector database in dir. The
// embedding function is used both for indexing new documents and for queries.
func Open(dir string, embed chromem.EmbeddingFunc) (*Store, error) {
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("opening vector database: %w", err)
	}

	col, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("opening collection %q: %w", collectionName, err)
	}

	return &Store{collection: col}, nil
}

// Disabled returns a Store whose operations are all no-ops. Used when memory
// credentials are missing or the database failed to open.
func Disabled() *Store {
	return &Store{}
}

// Enabled reports whether the store is backed by a real collection.
func (s *Store) Enabled() bool {
	return s != nil && s.collection != nil
}

// Retrieve performs a similarity search scoped to username and returns up to
// k matching interaction texts, most similar first. A disabled store returns
// nil without error.
func (s *Store) Retrieve(ctx context.Context, username, query string, k int) ([]string, error) {
	if !s.Enabled() {
		return nil, nil
	}
	if k < 1 {
		k = 1
	}

	// chromem rejects nResults larger than the number of documents, and the
	// username filter can shrink the candidate set further. Clamp to the
	// collection size, then back off until the query fits.
	n := s.collection.Count()
	if n == 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}

	where := map[string]string{"username": username}

	var results []chromem.Result
	var err error
	for ; k >= 1; k-- {
		results, err = s.collection.Query(ctx, query, k, where, nil)
		if err == nil {
			break
		}
		if !isTooFewDocsError(err) {
			return nil, fmt.Errorf("similarity search for %q: %w", username, err)
		}
	}
	if err != nil {
		// No document matched the username filter at all.
		return nil, nil
	}

	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Content
	}
	return out, nil
}

// Persist stores one completed exchange as a single document. The write is
// durable; a disabled store drops it silently.
func (s *Store) Persist(ctx context.Context, username, message, reply string, ts time.Time) error {
	if !s.Enabled() {
		return nil
	}

	doc := chromem.Document{
		ID:      uuid.NewString(),
		Content: FormatInteraction(username, message, reply),
		Metadata: map[string]string{
			"username":  username,
			"timestamp": ts.UTC().Format(time.RFC3339Nano),
		},
	}

	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("adding interaction document for %q: %w", username, err)
	}
	return nil
}

// Count returns the total number of stored interaction documents.
func (s *Store) Count() int {
	if !s.Enabled() {
		return 0
	}
	return s.collection.Count()
}

// FormatInteraction renders one exchange as the text block that gets embedded
// and later injected verbatim into prompts.
func FormatInteraction(username, message, reply string) string {
	return fmt.Sprintf("User (%s): %s\nAI Assistant: %s", username, message, reply)
}

// isTooFewDocsError matches chromem's complaint when nResults exceeds the
// candidate document count.
func isTooFewDocsError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "nResults must be")
}
