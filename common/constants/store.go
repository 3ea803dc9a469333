package constants

type DataStore string

const (
	DocumentStore DataStore = "document-store"
)

type ContextKey string

const (
	ConfigKey        ContextKey = "config"
	DocumentStoreKey ContextKey = "document-store"
)

// Datastore key namespaces used by the content-addressed document store.
const (
	BlocksNamespace = "/blocks"
	PinsNamespace   = "/pins"
)
