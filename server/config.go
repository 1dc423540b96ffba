package server

// Config is the HTTP server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8787")
	ListenAddr string

	// ProviderName and Model identify the upstream in published events.
	ProviderName string
	Model        string

	// BodyLimit caps request bodies in bytes. Image data-URLs make chat
	// requests large; zero selects 16 MiB.
	BodyLimit int

	// NumWorkers and QueueSize size the event publishing pool.
	NumWorkers uint
	QueueSize  uint
}

const defaultBodyLimit = 16 * 1024 * 1024
