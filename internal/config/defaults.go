package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Stores.BleveIndexPath == "" {
		cfg.Stores.BleveIndexPath = "/usr/local/var/torikomi/data/indices/bleve"
	}
	if cfg.Stores.Qdrant.Host == "" {
		cfg.Stores.Qdrant.Host = "localhost"
	}
	if cfg.Stores.Qdrant.Port == 0 {
		cfg.Stores.Qdrant.Port = 6334
	}
	if cfg.Stores.Qdrant.Collection == "" {
		cfg.Stores.Qdrant.Collection = "torikomi_chunks"
	}
	if cfg.Stores.Qdrant.VectorSize == 0 {
		cfg.Stores.Qdrant.VectorSize = 768
	}
	if cfg.Ollama.URL == "" {
		cfg.Ollama.URL = "http://localhost:11434"
	}
	if cfg.Ollama.ChatModel == "" {
		cfg.Ollama.ChatModel = "llama3.1"
	}
	if cfg.Ollama.EmbedModel == "" {
		cfg.Ollama.EmbedModel = "nomic-embed-text"
	}
	if cfg.Ingest.MaxChunkSize == 0 {
		cfg.Ingest.MaxChunkSize = 500
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 50
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Progress.TTLMinutes == 0 {
		cfg.Progress.TTLMinutes = 120
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
